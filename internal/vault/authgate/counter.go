package authgate

import (
	"crypto/sha256"
	"strconv"

	"pinvault/internal/vault/keyring"
)

// The failed-attempt counter is persisted as ciphertext so the schedule
// cannot be reset with a text editor. The key is derived from the KDF
// salt, which is stored next to it: this is tamper obfuscation, not a
// secrecy boundary. No key material exists before unlock, so nothing
// stronger is available here.
const counterLabel = "pinvault/attempt-counter"

func counterKey(salt []byte) *keyring.KeyHandle {
	sum := sha256.Sum256(append([]byte(counterLabel), salt...))
	handle, _ := keyring.ImportBytes(sum[:])
	return handle
}

func sealCounter(salt []byte, n int) ([]byte, error) {
	key := counterKey(salt)
	defer key.Zero()

	ciphertext, iv, err := keyring.WrapValue([]byte(strconv.Itoa(n)), key)
	if err != nil {
		return nil, err
	}
	// iv is prepended: the counter blob is a single opaque field.
	return append(iv, ciphertext...), nil
}

// openCounter returns 0 for a missing or unreadable blob. A wiped
// counter only resets the schedule, it never blocks authentication.
func openCounter(salt, blob []byte) int {
	if len(blob) <= keyring.IVLength {
		return 0
	}
	key := counterKey(salt)
	defer key.Zero()

	plain, err := keyring.OpenValue(blob[keyring.IVLength:], blob[:keyring.IVLength], key)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(string(plain))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
