package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	key := DeriveKey([]byte("passphrase"), salt)

	sealed, err := Seal([]byte(`{"answer":"yes"}`), key)
	require.NoError(t, err)
	assert.NotEqual(t, []byte(`{"answer":"yes"}`), sealed)

	plain, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"answer":"yes"}`), plain)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	key := DeriveKey([]byte("passphrase"), salt)
	other := DeriveKey([]byte("different"), salt)

	sealed, err := Seal([]byte("data"), key)
	require.NoError(t, err)

	_, err = Open(sealed, other)
	require.Error(t, err)
}

func TestOpen_TooShort(t *testing.T) {
	key := DeriveKey([]byte("p"), []byte("0123456789abcdef"))
	_, err := Open([]byte("short"), key)
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DeriveKey([]byte("p"), salt)
	k2 := DeriveKey([]byte("p"), salt)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)
}
