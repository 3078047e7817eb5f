package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor(t *testing.T) {
	t.Run("empty key", func(t *testing.T) {
		_, err := NewEncryptor("  ")
		assert.Error(t, err)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := NewEncryptor("invalid-key-format")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing identity")
	})

	t.Run("generated key", func(t *testing.T) {
		key, err := GenerateKey()
		require.NoError(t, err)

		enc, err := NewEncryptor(key + "\n")
		require.NoError(t, err)
		assert.Contains(t, enc.PublicKey(), "age1")
	})
}

func TestEncrypt_Decrypt(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	plaintext := []byte(`{"jwt":"abc","role":"Tenant Admin"}`)

	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.Contains(t, string(ciphertext), "BEGIN AGE ENCRYPTED FILE")
	assert.NotContains(t, string(ciphertext), "Tenant Admin")

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecrypt_WrongKey(t *testing.T) {
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()
	enc1, err := NewEncryptor(k1)
	require.NoError(t, err)
	enc2, err := NewEncryptor(k2)
	require.NoError(t, err)

	ciphertext, err := enc1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = enc2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "session.key")

	first, err := LoadOrCreateKey(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey(), second.PublicKey())
}
