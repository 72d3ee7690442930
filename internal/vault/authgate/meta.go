package authgate

import (
	"context"
	"time"
)

// VaultMeta is the singleton persisted state of the auth gate: the
// wrapped master key and the lockout bookkeeping. It is the only
// persisted form of the master key.
type VaultMeta struct {
	EncryptedMasterKey []byte     `json:"encrypted_master_key"`
	MasterIV           []byte     `json:"master_iv"`
	KDFSalt            []byte     `json:"kdf_salt"`
	KDFIterations      int        `json:"kdf_iterations"`
	FailedAttempts     []byte     `json:"failed_attempts"` // obfuscated ciphertext
	LockUntil          *time.Time `json:"lock_until,omitempty"`
	AutoLockSeconds    int        `json:"auto_lock_seconds"`
}

// MetaStore persists the VaultMeta singleton. LoadMeta returns
// (nil, nil) when no vault has been set up.
type MetaStore interface {
	LoadMeta(ctx context.Context) (*VaultMeta, error)
	SaveMeta(ctx context.Context, meta *VaultMeta) error
}
