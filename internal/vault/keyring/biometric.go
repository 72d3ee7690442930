package keyring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EscrowBlobName is the fixed local key under which the escrowed copy
// of the master key is stored.
const EscrowBlobName = "biometric-escrow"

// CredentialStore abstracts the platform biometric credential and the
// local blob storage next to it. The credential id is the only secret
// input; the prompt gates every unlock through the platform biometric
// check.
type CredentialStore interface {
	// CreateCredential registers a platform-bound credential and
	// returns its opaque id.
	CreateCredential() (string, error)
	// PromptCredential runs the platform biometric prompt and returns
	// the credential id on success.
	PromptCredential() (string, error)
	// DeleteCredential removes the platform credential.
	DeleteCredential() error

	SaveBlob(name string, data []byte) error
	LoadBlob(name string) ([]byte, error)
	DeleteBlob(name string) error
}

// escrowBlob is the persisted escrow format: hex fields under a fixed
// local key name, no network surface.
type escrowBlob struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
}

// Escrow wraps a second copy of the master key under a key derived
// from the platform credential id. It is a convenience unlock path,
// not an independent secret: whoever controls the platform credential
// controls this copy.
type Escrow struct {
	store CredentialStore
}

func NewEscrow(store CredentialStore) *Escrow {
	return &Escrow{store: store}
}

// Enable creates the platform credential and stores an escrowed copy
// of the master key encrypted under the credential-derived key.
func (e *Escrow) Enable(master *KeyHandle) error {
	credID, err := e.store.CreateCredential()
	if err != nil {
		return fmt.Errorf("failed to create platform credential: %w", err)
	}

	escrowKey := deriveEscrowKey(credID)
	defer escrowKey.Zero()

	raw := master.ExportBytes()
	defer zero(raw)

	ciphertext, iv, err := sealWithKey(escrowKey.raw(), raw)
	if err != nil {
		return fmt.Errorf("failed to escrow master key: %w", err)
	}

	blob, err := json.Marshal(escrowBlob{
		Encrypted: hex.EncodeToString(ciphertext),
		IV:        hex.EncodeToString(iv),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize escrow blob: %w", err)
	}

	if err := e.store.SaveBlob(EscrowBlobName, blob); err != nil {
		return fmt.Errorf("failed to store escrow blob: %w", err)
	}
	return nil
}

// Unlock runs the platform prompt and unwraps the escrowed master key.
// Any failure after the prompt surfaces as ErrWrongSecret.
func (e *Escrow) Unlock() (*KeyHandle, error) {
	data, err := e.store.LoadBlob(EscrowBlobName)
	if err != nil {
		return nil, ErrEscrowNotEnabled
	}

	credID, err := e.store.PromptCredential()
	if err != nil {
		return nil, ErrPromptDenied
	}

	var blob escrowBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, ErrWrongSecret
	}
	ciphertext, err := hex.DecodeString(blob.Encrypted)
	if err != nil {
		return nil, ErrWrongSecret
	}
	iv, err := hex.DecodeString(blob.IV)
	if err != nil {
		return nil, ErrWrongSecret
	}

	escrowKey := deriveEscrowKey(credID)
	defer escrowKey.Zero()

	raw, err := openWithKey(escrowKey.raw(), ciphertext, iv)
	if err != nil {
		return nil, ErrWrongSecret
	}
	defer zero(raw)
	return ImportBytes(raw)
}

// Disable deletes the escrowed ciphertext immediately, then the
// platform credential.
func (e *Escrow) Disable() error {
	if err := e.store.DeleteBlob(EscrowBlobName); err != nil {
		return fmt.Errorf("failed to delete escrow blob: %w", err)
	}
	if err := e.store.DeleteCredential(); err != nil {
		return fmt.Errorf("failed to delete platform credential: %w", err)
	}
	return nil
}

// Enabled reports whether an escrow blob exists.
func (e *Escrow) Enabled() bool {
	_, err := e.store.LoadBlob(EscrowBlobName)
	return err == nil
}

// deriveEscrowKey maps the credential id to an AES key. SHA-256 of the
// id is deterministic on purpose: the platform prompt is the gate, the
// derived key is not an independent secret.
func deriveEscrowKey(credentialID string) *KeyHandle {
	sum := sha256.Sum256([]byte(credentialID))
	return &KeyHandle{key: sum[:]}
}
