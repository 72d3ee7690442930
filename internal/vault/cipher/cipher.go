// Package cipher implements per-record authenticated encryption under
// the unwrapped master key.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"pinvault/internal/vault/keyring"
)

// ErrAuthentication covers a wrong key and tampered ciphertext alike.
// The GCM tag check is the only integrity signal and it never says
// which input was bad.
var ErrAuthentication = errors.New("decryption failed: authentication error")

// EncryptData encrypts a record payload with AES-GCM under the master
// key. Every call draws a fresh random 12-byte IV; the IV is returned
// detached from the ciphertext.
func EncryptData(plaintext []byte, key *keyring.KeyHandle) (ciphertext, iv []byte, err error) {
	raw := key.ExportBytes()
	defer wipe(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	iv = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	return gcm.Seal(nil, iv, plaintext, nil), iv, nil
}

// DecryptData reverses EncryptData. All failure modes surface as
// ErrAuthentication.
func DecryptData(ciphertext, iv []byte, key *keyring.KeyHandle) ([]byte, error) {
	raw := key.ExportBytes()
	defer wipe(raw)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, ErrAuthentication
	}
	gcm, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, ErrAuthentication
	}
	if len(iv) != gcm.NonceSize() {
		return nil, ErrAuthentication
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
