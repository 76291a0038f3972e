package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	enc, err := EncryptString(key, `{"api_key":"sk_test_123"}`)
	require.NoError(t, err)
	assert.NotContains(t, enc, "sk_test_123")

	dec, err := DecryptString(key, enc)
	require.NoError(t, err)
	assert.Equal(t, `{"api_key":"sk_test_123"}`, dec)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	key := make([]byte, 32)
	enc, err := EncryptString(key, "secret")
	require.NoError(t, err)

	tampered := "A" + enc[1:]
	_, err = DecryptString(key, tampered)
	assert.Error(t, err)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key := make([]byte, 32)
	enc, err := EncryptString(key, "secret")
	require.NoError(t, err)

	other := make([]byte, 32)
	other[0] = 1
	_, err = DecryptString(other, enc)
	assert.Error(t, err)
}
