package record

import (
	"encoding/json"
	"time"
)

// Record is the local form of a vault entry. Private records carry
// ciphertext and a detached IV; public records carry plaintext JSON.
// Tags and timestamps always stay outside the ciphertext so listing
// works while the vault is locked. That is a deliberate, documented
// privacy tradeoff.
type Record struct {
	ID         int64           `json:"id"`
	Type       RecType         `json:"type"`
	IsPrivate  bool            `json:"is_private"`
	Tags       []string        `json:"tags"`
	Ciphertext []byte          `json:"ciphertext,omitempty"`
	IV         []byte          `json:"iv,omitempty"`
	Plaintext  json.RawMessage `json:"plaintext,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CloudRecord is the remote document form of a record. The record id
// doubles as the remote document key. CloudUpdatedAt is assigned by the
// uploading device and is distinct from UpdatedAt.
type CloudRecord struct {
	Record
	CloudUpdatedAt time.Time `json:"cloud_updated_at"`
	DeviceID       string    `json:"device_id"`
	Deleted        bool      `json:"deleted"`
}

// Tombstone builds the merge document another device needs to observe
// and propagate a deletion.
func Tombstone(id int64, deviceID string, at time.Time) CloudRecord {
	return CloudRecord{
		Record:         Record{ID: id},
		CloudUpdatedAt: at,
		DeviceID:       deviceID,
		Deleted:        true,
	}
}

// ChangeEvent is one entry of a user's change feed: enough for a
// listener to decide whether a foreign device wrote something.
type ChangeEvent struct {
	RecordID       int64     `json:"record_id"`
	DeviceID       string    `json:"device_id"`
	CloudUpdatedAt time.Time `json:"cloud_updated_at"`
	Deleted        bool      `json:"deleted"`
}

// SyncCursor marks the last completed sync for a device. One copy lives
// locally, one in the remote store per user.
type SyncCursor struct {
	LastSyncTime time.Time `json:"last_sync_time"`
	DeviceID     string    `json:"device_id"`
}

// Clone returns a deep copy so merge steps never alias shared state.
func (r Record) Clone() Record {
	out := r
	out.Tags = append([]string(nil), r.Tags...)
	out.Ciphertext = append([]byte(nil), r.Ciphertext...)
	out.IV = append([]byte(nil), r.IV...)
	out.Plaintext = append(json.RawMessage(nil), r.Plaintext...)
	return out
}
