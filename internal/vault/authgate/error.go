package authgate

import (
	"errors"
)

var (
	// ErrNotConfigured means no vault has been set up yet. Fatal to
	// any authenticate call.
	ErrNotConfigured = errors.New("vault not configured")

	ErrAlreadyConfigured = errors.New("vault already configured")

	// ErrLockoutActive rejects an authenticate attempt during the
	// cooldown window. The attempt consumes nothing.
	ErrLockoutActive = errors.New("lockout active")

	// ErrLocked means no master key is held in memory.
	ErrLocked = errors.New("vault is locked")

	ErrInvalidAutoLock = errors.New("auto-lock timeout must be between 1 and 60 minutes")
)
