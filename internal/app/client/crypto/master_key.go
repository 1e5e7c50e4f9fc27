// internal/app/client/crypto/master_key.go
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	keyVersion     = 2
	keyLength      = 32 // AES-256
	keyPermissions = 0600

	installSecretLength = 32
	deviceSaltLength    = 16

	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
)

// KeyHeader holds the metadata stored alongside the local device key.
type KeyHeader struct {
	Version      int       `json:"version"`
	KeyAlgorithm string    `json:"key_algorithm"`
	Salt         string    `json:"salt"` // hex encoded
	CreatedAt    time.Time `json:"created_at"`
}

// KeyManager owns the local, per-installation AES key used to encrypt the
// auth token and any other secrets cached on disk. daylog has no master
// password or passphrase-unlock step, so there is nothing to derive the key
// from except a random secret minted on first run; that secret is never
// used directly as the AES key, it is run through Argon2id first, the same
// KDF the password-unlock path would use if one existed.
type KeyManager struct {
	key     []byte // Argon2id(secret, salt) — held in memory only
	secret  []byte // the persisted installation secret
	header  KeyHeader
	keyPath string
	mu      sync.RWMutex
}

// NewKeyManager loads the device key from keyPath, generating one if the
// file does not yet exist.
func NewKeyManager(keyPath string) (*KeyManager, error) {
	absPath, err := filepath.Abs(keyPath)
	if err != nil {
		return nil, fmt.Errorf("resolve key path: %w", err)
	}

	m := &KeyManager{keyPath: absPath}

	if _, err := os.Stat(absPath); err == nil {
		if err := m.load(); err != nil {
			return nil, fmt.Errorf("load device key: %w", err)
		}
		return m, nil
	}

	if err := m.generate(); err != nil {
		return nil, fmt.Errorf("generate device key: %w", err)
	}
	return m, nil
}

func (m *KeyManager) generate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	secret := make([]byte, installSecretLength)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return fmt.Errorf("generate install secret: %w", err)
	}
	salt := make([]byte, deviceSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	m.secret = secret
	m.header = KeyHeader{
		Version:      keyVersion,
		KeyAlgorithm: "Argon2id",
		Salt:         hex.EncodeToString(salt),
		CreatedAt:    time.Now(),
	}
	m.key = deriveKey(secret, salt)

	return m.save()
}

func (m *KeyManager) save() error {
	if err := os.MkdirAll(filepath.Dir(m.keyPath), 0700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	container := struct {
		Header KeyHeader `json:"header"`
		Secret string    `json:"secret"` // hex encoded installation secret
	}{
		Header: m.header,
		Secret: hex.EncodeToString(m.secret),
	}

	data, err := json.MarshalIndent(container, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}

	return os.WriteFile(m.keyPath, data, keyPermissions)
}

func (m *KeyManager) load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.keyPath)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}

	var container struct {
		Header KeyHeader `json:"header"`
		Secret string    `json:"secret"`
	}
	if err := json.Unmarshal(data, &container); err != nil {
		return fmt.Errorf("decode key file: %w", err)
	}

	secret, err := hex.DecodeString(container.Secret)
	if err != nil {
		return fmt.Errorf("decode secret hex: %w", err)
	}
	salt, err := hex.DecodeString(container.Header.Salt)
	if err != nil {
		return fmt.Errorf("decode salt hex: %w", err)
	}

	m.header = container.Header
	m.secret = secret
	m.key = deriveKey(secret, salt)
	return nil
}

// deriveKey turns the installation secret into the AES key via Argon2id, per
// SPEC_FULL.md §4.1 — the raw secret is never used as key material directly.
func deriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, argon2Time, argon2Memory, argon2Threads, keyLength)
}

// Encrypt encrypts plaintext with the device key using AES-GCM.
func (m *KeyManager) Encrypt(plaintext []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return encryptWithKey(m.key, plaintext)
}

// Decrypt decrypts ciphertext produced by Encrypt.
func (m *KeyManager) Decrypt(ciphertext []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decryptWithKey(m.key, ciphertext)
}

func encryptWithKey(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithKey(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}
