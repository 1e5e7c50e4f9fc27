// internal/app/client/crypto/encryption.go
package crypto

import (
	"encoding/base64"
	"fmt"
)

// TokenCipher encrypts the bearer token (and any other small secret) at
// rest using the device's local key. There is no per-record encryption in
// daylog: blocks, tasks and settings travel and sit in the local cache in
// plaintext, since the server already scopes everything to the
// authenticated user.
type TokenCipher struct {
	keys *KeyManager
}

func NewTokenCipher(keys *KeyManager) *TokenCipher {
	return &TokenCipher{keys: keys}
}

// EncryptString encrypts plaintext and returns it base64-encoded, ready to
// write into the local token file.
func (c *TokenCipher) EncryptString(plaintext string) (string, error) {
	ciphertext, err := c.keys.Encrypt([]byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString decodes and decrypts a value produced by EncryptString.
func (c *TokenCipher) DecryptString(encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}

	plaintext, err := c.keys.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}

	return string(plaintext), nil
}
