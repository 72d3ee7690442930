// Package remote abstracts the cloud document collection the sync
// engine merges against. Payloads cross this boundary as ciphertext
// only; nothing here can decrypt anything.
package remote

import (
	"context"
	"errors"
	"time"

	"pinvault/internal/domain/record"
)

// ErrNotSignedIn means no identity-provider session exists. Sync
// treats it as non-fatal and skips silently.
var ErrNotSignedIn = errors.New("not signed in")

// Event describes one write observed on the remote collection.
type Event struct {
	RecordID       int64     `json:"record_id"`
	DeviceID       string    `json:"device_id"`
	CloudUpdatedAt time.Time `json:"cloud_updated_at"`
	Deleted        bool      `json:"deleted"`
}

// Store is the remote document collection plus the per-user cursor
// document. Record ids double as document keys.
type Store interface {
	// ListRecords returns every document, tombstones included.
	ListRecords(ctx context.Context) ([]record.CloudRecord, error)
	// PutRecord merge-upserts one document, tombstones included.
	PutRecord(ctx context.Context, rec record.CloudRecord) error
	// DeleteRecord hard-deletes a document. Only tombstone cleanup
	// uses this; ordinary deletion goes through PutRecord tombstones.
	DeleteRecord(ctx context.Context, id int64) error

	GetCursor(ctx context.Context) (record.SyncCursor, error)
	PutCursor(ctx context.Context, cursor record.SyncCursor) error

	// Changes returns writes at or after the given time, oldest first.
	Changes(ctx context.Context, since time.Time) ([]Event, error)
}
