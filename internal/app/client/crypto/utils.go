package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// GenerateRandomBytes returns cryptographically secure random bytes, used
// for generating a new client ID on first run.
func GenerateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateRandomHex returns a random hex string of the given byte length.
func GenerateRandomHex(size int) (string, error) {
	b, err := GenerateRandomBytes(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
