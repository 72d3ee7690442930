// Package sync merges the local encrypted record set with the remote
// CloudRecord collection. It moves ciphertext blobs only and never
// decrypts anything. Conflict policy is last-write-wins by client
// wall clock; concurrent offline edits to one record silently drop
// the earlier edit.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"pinvault/internal/domain/record"
	"pinvault/internal/remote"
)

// TombstoneTTL is how long remote tombstones survive before cleanup.
const TombstoneTTL = 24 * time.Hour

// LocalStore is the slice of the client store the engine needs.
type LocalStore interface {
	ListRecords(ctx context.Context) ([]record.Record, error)
	SaveRecord(ctx context.Context, rec *record.Record) error
	DeleteRecord(ctx context.Context, id int64) error
	LoadCursor(ctx context.Context) (record.SyncCursor, error)
	SaveCursor(ctx context.Context, cursor record.SyncCursor) error
}

// SyncError records one failed step without aborting the batch.
type SyncError struct {
	RecordID  int64     `json:"record_id,omitempty"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Result accumulates what one sync cycle did.
type Result struct {
	Uploaded   int         `json:"uploaded"`
	Downloaded int         `json:"downloaded"`
	Deleted    int         `json:"deleted"`
	Conflicts  int         `json:"conflicts"`
	Errors     []SyncError `json:"errors,omitempty"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    time.Time   `json:"end_time"`
}

// Engine runs the bidirectional merge. One sync per process: the
// in-flight flag rejects re-entrant calls instead of queueing them.
type Engine struct {
	local    LocalStore
	remote   remote.Store
	deviceID string
	log      *slog.Logger
	clock    func() time.Time

	mu       gosync.Mutex
	inFlight bool

	subMu gosync.Mutex
	subs  []chan Result
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithClock injects a clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func NewEngine(local LocalStore, rem remote.Store, deviceID string, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		local:    local,
		remote:   rem,
		deviceID: deviceID,
		log:      log.With("component", "sync"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InFlight reports whether a sync cycle is currently running.
func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// Subscribe returns a channel receiving the Result of every completed
// sync cycle. Slow subscribers miss results rather than block the
// engine.
func (e *Engine) Subscribe() <-chan Result {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	ch := make(chan Result, 8)
	e.subs = append(e.subs, ch)
	return ch
}

func (e *Engine) publish(result Result) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- result:
		default:
		}
	}
}

// SyncToCloud runs one full merge cycle. There is no cancellation of
// a running cycle beyond the context: every step re-derives state from
// current maps, so a partial failure is reconciled by the next cycle.
func (e *Engine) SyncToCloud(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	e.inFlight = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	result := &Result{StartTime: e.clock()}

	cursor, err := e.local.LoadCursor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync cursor: %w", err)
	}

	locals, err := e.local.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list local records: %w", err)
	}
	clouds, err := e.remote.ListRecords(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrNotSignedIn) {
			return nil, ErrSyncUnavailable
		}
		return nil, fmt.Errorf("failed to list cloud records: %w", err)
	}

	localMap := make(map[int64]record.Record, len(locals))
	for _, rec := range locals {
		localMap[rec.ID] = rec
	}
	cloudMap := make(map[int64]record.CloudRecord, len(clouds))
	for _, rec := range clouds {
		cloudMap[rec.ID] = rec
	}

	e.log.Debug("sync started",
		"local_records", len(localMap),
		"cloud_records", len(cloudMap),
		"last_sync", cursor.LastSyncTime,
	)

	for id, local := range localMap {
		cloud, exists := cloudMap[id]
		switch {
		case !exists:
			e.upload(ctx, local, result)

		case cloud.Deleted:
			// Another device removed it; apply the tombstone here.
			if err := e.local.DeleteRecord(ctx, id); err != nil {
				result.addError(id, "delete_local", err, e.clock())
				continue
			}
			result.Deleted++

		case local.UpdatedAt.After(cloud.CloudUpdatedAt):
			// Local wins by LWW, but only foreign copies are
			// overwritten; our own stale upload is left alone.
			if cloud.DeviceID != e.deviceID {
				if cloud.CloudUpdatedAt.After(cursor.LastSyncTime) {
					result.Conflicts++
				}
				e.upload(ctx, local, result)
			}

		case cloud.CloudUpdatedAt.After(local.UpdatedAt):
			// Cloud wins, unless it is our own echo from a previous
			// upload, which always carries a later cloudUpdatedAt.
			if cloud.DeviceID != e.deviceID {
				if err := e.local.SaveRecord(ctx, &cloud.Record); err != nil {
					result.addError(id, "download", err, e.clock())
					continue
				}
				result.Downloaded++
			}
		}
	}

	for id, cloud := range cloudMap {
		if _, exists := localMap[id]; exists || cloud.Deleted {
			continue
		}
		if err := e.local.SaveRecord(ctx, &cloud.Record); err != nil {
			result.addError(id, "download", err, e.clock())
			continue
		}
		result.Downloaded++
	}

	newCursor := record.SyncCursor{LastSyncTime: e.clock(), DeviceID: e.deviceID}
	if err := e.remote.PutCursor(ctx, newCursor); err != nil {
		result.addError(0, "put_cursor", err, e.clock())
	}
	if err := e.local.SaveCursor(ctx, newCursor); err != nil {
		result.addError(0, "save_cursor", err, e.clock())
	}

	result.EndTime = e.clock()
	e.log.Info("sync finished",
		"uploaded", result.Uploaded,
		"downloaded", result.Downloaded,
		"deleted", result.Deleted,
		"conflicts", result.Conflicts,
		"errors", len(result.Errors),
	)

	e.publish(*result)
	return result, nil
}

func (e *Engine) upload(ctx context.Context, local record.Record, result *Result) {
	cloud := record.CloudRecord{
		Record:         local.Clone(),
		CloudUpdatedAt: e.clock(),
		DeviceID:       e.deviceID,
	}
	if err := e.remote.PutRecord(ctx, cloud); err != nil {
		result.addError(local.ID, "upload", err, e.clock())
		return
	}
	result.Uploaded++
}

// TombstoneRecord merge-updates the remote document to a tombstone so
// other devices observe and propagate the deletion. The local row is
// already gone by the time this runs; failure here is best-effort and
// only logged by callers.
func (e *Engine) TombstoneRecord(ctx context.Context, id int64) error {
	err := e.remote.PutRecord(ctx, record.Tombstone(id, e.deviceID, e.clock()))
	if errors.Is(err, remote.ErrNotSignedIn) {
		return ErrSyncUnavailable
	}
	return err
}

// CleanupTombstones hard-deletes remote tombstones older than
// TombstoneTTL. Runs periodically; by then every active device has had
// a chance to observe the deletion.
func (e *Engine) CleanupTombstones(ctx context.Context) (int, error) {
	clouds, err := e.remote.ListRecords(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrNotSignedIn) {
			return 0, ErrSyncUnavailable
		}
		return 0, fmt.Errorf("failed to list cloud records: %w", err)
	}

	cutoff := e.clock().Add(-TombstoneTTL)
	removed := 0
	for _, cloud := range clouds {
		if !cloud.Deleted || cloud.CloudUpdatedAt.After(cutoff) {
			continue
		}
		if err := e.remote.DeleteRecord(ctx, cloud.ID); err != nil {
			e.log.Warn("failed to clean up tombstone", "record_id", cloud.ID, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		e.log.Info("tombstones cleaned up", "removed", removed)
	}
	return removed, nil
}

func (r *Result) addError(id int64, op string, err error, at time.Time) {
	r.Errors = append(r.Errors, SyncError{
		RecordID:  id,
		Operation: op,
		Error:     err.Error(),
		Timestamp: at,
	})
}
