package store

import (
	"errors"
)

// ErrStorage marks local persistence failures. Mutations wrapped in it
// were aborted; callers must not assume partial writes.
var ErrStorage = errors.New("local storage failure")
