package sync

import (
	"errors"
)

var (
	// ErrSyncInProgress rejects a re-entrant sync outright; calls are
	// never queued.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncUnavailable means no identity-provider session exists.
	// Non-fatal: callers skip the sync silently.
	ErrSyncUnavailable = errors.New("sync unavailable: not signed in")
)
