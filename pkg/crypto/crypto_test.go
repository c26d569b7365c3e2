package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := NewAESCryptor(testKey)

	tests := []string{
		"access-token-value",
		"",
		"token with spaces and unicode é",
	}

	for _, plaintext := range tests {
		encrypted, err := c.Encrypt([]byte(plaintext))
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c := NewAESCryptor(testKey)

	a, err := c.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)

	// Random nonces mean two encryptions of the same value differ, which is
	// what makes the stored ciphertext usable as an optimistic-lock check.
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsBadInput(t *testing.T) {
	c := NewAESCryptor(testKey)

	_, err := c.Decrypt("not base64 at all !!!")
	assert.Error(t, err)

	_, err = c.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestDecryptWithWrongKey(t *testing.T) {
	c := NewAESCryptor(testKey)
	encrypted, err := c.Encrypt([]byte("secret"))
	require.NoError(t, err)

	other := NewAESCryptor([]byte("ffffffffffffffffffffffffffffffff"))
	_, err = other.Decrypt(encrypted)
	assert.Error(t, err)
}

func TestIsTokenExpired(t *testing.T) {
	assert.False(t, IsTokenExpired(time.Now().Add(time.Minute)))
	assert.True(t, IsTokenExpired(time.Now().Add(-time.Minute)))
	assert.True(t, IsTokenExpired(time.Time{}))
}
