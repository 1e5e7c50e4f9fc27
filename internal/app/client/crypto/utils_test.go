package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomBytes(t *testing.T) {
	b, err := GenerateRandomBytes(16)
	require.NoError(t, err)
	assert.Len(t, b, 16)

	b2, err := GenerateRandomBytes(16)
	require.NoError(t, err)
	assert.NotEqual(t, b, b2)
}

func TestGenerateRandomHex(t *testing.T) {
	hex, err := GenerateRandomHex(8)
	require.NoError(t, err)
	assert.Len(t, hex, 16)
}
