package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	master, err := GenerateMasterKey()
	require.NoError(t, err)

	salt, err := GenerateSalt()
	require.NoError(t, err)
	require.Len(t, salt, SaltLength)

	pinKey := DerivePinKey("1234", salt, DefaultIterations)

	ciphertext, iv, err := WrapMasterKey(master, pinKey)
	require.NoError(t, err)
	assert.Len(t, iv, IVLength)

	// Same PIN and salt derive the same wrapping key.
	pinKey2 := DerivePinKey("1234", salt, DefaultIterations)
	unwrapped, err := UnwrapMasterKey(ciphertext, iv, pinKey2)
	require.NoError(t, err)

	assert.Equal(t, master.ExportBytes(), unwrapped.ExportBytes())
}

func TestUnwrapWrongPin(t *testing.T) {
	master, err := GenerateMasterKey()
	require.NoError(t, err)

	salt, err := GenerateSalt()
	require.NoError(t, err)

	pinKey := DerivePinKey("1234", salt, 10000)
	ciphertext, iv, err := WrapMasterKey(master, pinKey)
	require.NoError(t, err)

	wrongKey := DerivePinKey("4321", salt, 10000)
	_, err = UnwrapMasterKey(ciphertext, iv, wrongKey)
	assert.ErrorIs(t, err, ErrWrongSecret)
}

func TestUnwrapCorruptedCiphertext(t *testing.T) {
	master, err := GenerateMasterKey()
	require.NoError(t, err)

	salt, err := GenerateSalt()
	require.NoError(t, err)

	pinKey := DerivePinKey("1234", salt, 10000)
	ciphertext, iv, err := WrapMasterKey(master, pinKey)
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	_, err = UnwrapMasterKey(ciphertext, iv, pinKey)

	// Corruption must be indistinguishable from a wrong PIN.
	assert.ErrorIs(t, err, ErrWrongSecret)
}

func TestWrapUsesFreshIV(t *testing.T) {
	master, err := GenerateMasterKey()
	require.NoError(t, err)

	salt, err := GenerateSalt()
	require.NoError(t, err)
	pinKey := DerivePinKey("1234", salt, 10000)

	_, iv1, err := WrapMasterKey(master, pinKey)
	require.NoError(t, err)
	_, iv2, err := WrapMasterKey(master, pinKey)
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2)
}

func TestDerivePinKeyIsDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	k1 := DerivePinKey("0000", salt, 10000)
	k2 := DerivePinKey("0000", salt, 10000)
	assert.Equal(t, k1.ExportBytes(), k2.ExportBytes())

	k3 := DerivePinKey("0000", salt, 20000)
	assert.NotEqual(t, k1.ExportBytes(), k3.ExportBytes())
}

func TestKeyHandleZero(t *testing.T) {
	master, err := GenerateMasterKey()
	require.NoError(t, err)

	exported := master.ExportBytes()
	master.Zero()

	// The exported copy is the caller's; the handle itself is wiped.
	assert.Len(t, exported, KeyLength)
	assert.Nil(t, master.raw())
}

func TestImportBytesLength(t *testing.T) {
	_, err := ImportBytes(make([]byte, 16))
	assert.Error(t, err)

	h, err := ImportBytes(make([]byte, KeyLength))
	require.NoError(t, err)
	assert.Len(t, h.ExportBytes(), KeyLength)
}
