package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyManager_GenerateAndReload(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "device.key")

	mgr, err := NewKeyManager(keyPath)
	require.NoError(t, err)
	_, err = os.Stat(keyPath)
	require.NoError(t, err)

	ciphertext, err := mgr.Encrypt([]byte("top secret token"))
	require.NoError(t, err)

	reloaded, err := NewKeyManager(keyPath)
	require.NoError(t, err)

	plaintext, err := reloaded.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "top secret token", string(plaintext))
}

func TestKeyManager_DecryptWrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	a, err := NewKeyManager(filepath.Join(dir, "a.key"))
	require.NoError(t, err)
	b, err := NewKeyManager(filepath.Join(dir, "b.key"))
	require.NoError(t, err)

	ciphertext, err := a.Encrypt([]byte("hello"))
	require.NoError(t, err)

	_, err = b.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestTokenCipher_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewKeyManager(filepath.Join(dir, "device.key"))
	require.NoError(t, err)

	cipher := NewTokenCipher(mgr)
	encoded, err := cipher.EncryptString("bearer-token-value")
	require.NoError(t, err)
	assert.NotEqual(t, "bearer-token-value", encoded)

	decoded, err := cipher.DecryptString(encoded)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token-value", decoded)
}
