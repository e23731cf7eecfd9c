package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("k", 32))

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("Went hiking, felt great.", "user-1")
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "hiking")

	plain, err := c.Decrypt(encrypted, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Went hiking, felt great.", plain)
}

func TestCipher_FreshNoncePerCall(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	a, err := c.Encrypt("same", "user-1")
	require.NoError(t, err)
	b, err := c.Encrypt("same", "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCipher_BoundToAssociatedData(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("private", "user-1")
	require.NoError(t, err)

	_, err = c.Decrypt(encrypted, "user-2")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestCipher_WrongKey(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)
	other, err := NewCipher([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)

	encrypted, err := c.Encrypt("private", "user-1")
	require.NoError(t, err)

	_, err = other.Decrypt(encrypted, "user-1")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestCipher_RejectsGarbage(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	_, err = c.Decrypt("not base64!", "user-1")
	assert.Error(t, err)

	_, err = c.Decrypt("c2hvcnQ=", "user-1")
	assert.ErrorIs(t, err, ErrCipherTextShort)
}

func TestNewCipher_KeyLength(t *testing.T) {
	_, err := NewCipher([]byte("too short"))
	assert.ErrorIs(t, err, ErrKeyTooShort)
}
