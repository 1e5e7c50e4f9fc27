package authtoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidate(t *testing.T) {
	svc := NewService("test-secret")
	ctx := context.Background()

	token, err := svc.Create(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := NewService("test-secret")
	other := NewService("other-secret")
	ctx := context.Background()

	token, err := svc.Create(ctx, 1)
	require.NoError(t, err)

	_, err = other.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-secret")
	ctx := context.Background()

	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "7",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
