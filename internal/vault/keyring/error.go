package keyring

import (
	"errors"
)

var (
	// ErrWrongSecret covers both a wrong PIN and corrupted wrapped key
	// data. The two cases are deliberately indistinguishable.
	ErrWrongSecret = errors.New("wrong secret or corrupted key data")

	ErrEscrowNotEnabled = errors.New("biometric escrow not enabled")
	ErrPromptDenied     = errors.New("platform credential prompt denied")
)
