package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/sitewatch/internal/secrets"
)

func TestCipher_RoundTrip(t *testing.T) {
	cipher, err := secrets.NewCipher("test-secret")
	require.NoError(t, err)

	plaintext := []byte(`{"username":"svc-crawler","password":"hunter2"}`)

	ciphertext, err := cipher.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "hunter2")

	decrypted, err := cipher.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestCipher_EncryptIsSalted(t *testing.T) {
	cipher, err := secrets.NewCipher("test-secret")
	require.NoError(t, err)

	first, err := cipher.Encrypt([]byte("same input"))
	require.NoError(t, err)
	second, err := cipher.Encrypt([]byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipher_WrongSecret(t *testing.T) {
	cipher, err := secrets.NewCipher("right-secret")
	require.NoError(t, err)

	ciphertext, err := cipher.Encrypt([]byte("payload"))
	require.NoError(t, err)

	other, err := secrets.NewCipher("wrong-secret")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestCipher_TamperedCiphertext(t *testing.T) {
	cipher, err := secrets.NewCipher("test-secret")
	require.NoError(t, err)

	_, err = cipher.Decrypt("dG9vc2hvcnQ=")
	require.ErrorIs(t, err, secrets.ErrCiphertextTooShort)

	_, err = cipher.Decrypt("not base64!!!")
	require.Error(t, err)
}

func TestNewCipher_EmptySecret(t *testing.T) {
	_, err := secrets.NewCipher("")
	require.Error(t, err)
}
