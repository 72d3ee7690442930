package record

import (
	"errors"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidData = errors.New("invalid record data")
	ErrInvalidID   = errors.New("invalid record id")
)
