package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor for PIN derivation.
	DefaultIterations = 300000

	KeyLength  = 32 // 256-bit AES keys
	SaltLength = 16
	IVLength   = 12
)

// KeyHandle wraps raw symmetric key material. Raw bytes are only
// reachable through ExportBytes and must never outlive a wrap or
// unwrap call.
type KeyHandle struct {
	key []byte
}

// ImportBytes builds a handle from raw key material. The input slice
// is copied; callers keep ownership of their buffer.
func ImportBytes(raw []byte) (*KeyHandle, error) {
	if len(raw) != KeyLength {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeyLength, len(raw))
	}
	k := make([]byte, KeyLength)
	copy(k, raw)
	return &KeyHandle{key: k}, nil
}

// ExportBytes returns a copy of the raw key material.
func (h *KeyHandle) ExportBytes() []byte {
	out := make([]byte, len(h.key))
	copy(out, h.key)
	return out
}

// Zero wipes the key material in place. The handle is unusable after.
func (h *KeyHandle) Zero() {
	for i := range h.key {
		h.key[i] = 0
	}
	h.key = nil
}

func (h *KeyHandle) raw() []byte { return h.key }

// GenerateMasterKey creates a fresh random 256-bit master key.
func GenerateMasterKey() (*KeyHandle, error) {
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	return &KeyHandle{key: key}, nil
}

// GenerateSalt creates a fresh random KDF salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DerivePinKey derives the wrapping key from a PIN with
// PBKDF2-HMAC-SHA256. The result wraps and unwraps the master key and
// is never used to encrypt record data directly.
func DerivePinKey(pin string, salt []byte, iterations int) *KeyHandle {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	key := pbkdf2.Key([]byte(pin), salt, iterations, KeyLength, sha256.New)
	return &KeyHandle{key: key}
}

// WrapMasterKey encrypts the exported master key bytes under the PIN
// key with AES-GCM and a fresh 12-byte IV. The IV is returned detached
// from the ciphertext.
func WrapMasterKey(master, pinKey *KeyHandle) (ciphertext, iv []byte, err error) {
	raw := master.ExportBytes()
	defer zero(raw)
	return sealWithKey(pinKey.raw(), raw)
}

// UnwrapMasterKey decrypts a wrapped master key. A wrong PIN and
// corrupted data fail with the same ErrWrongSecret so callers cannot
// tell them apart.
func UnwrapMasterKey(ciphertext, iv []byte, pinKey *KeyHandle) (*KeyHandle, error) {
	raw, err := openWithKey(pinKey.raw(), ciphertext, iv)
	if err != nil {
		return nil, ErrWrongSecret
	}
	defer zero(raw)
	return ImportBytes(raw)
}

// WrapValue seals an arbitrary small value under a key handle. Used
// for internal bookkeeping blobs, never for record payloads.
func WrapValue(plaintext []byte, key *KeyHandle) (ciphertext, iv []byte, err error) {
	return sealWithKey(key.raw(), plaintext)
}

// OpenValue reverses WrapValue.
func OpenValue(ciphertext, iv []byte, key *KeyHandle) ([]byte, error) {
	return openWithKey(key.raw(), ciphertext, iv)
}

func sealWithKey(key, plaintext []byte) (ciphertext, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	iv = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	return gcm.Seal(nil, iv, plaintext, nil), iv, nil
}

func openWithKey(key, ciphertext, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	if len(iv) != gcm.NonceSize() {
		return nil, fmt.Errorf("invalid iv length: %d", len(iv))
	}
	return gcm.Open(nil, iv, ciphertext, nil)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
