// Package authtoken issues and validates the bearer tokens gating every sync
// operation (spec.md §4.4). Create/Validate wrap self-contained
// golang-jwt/jwt/v5 HS256 claims: the server never needs a database
// round-trip to validate a bearer.
package authtoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const ttl = 30 * 24 * time.Hour // spec.md §4.4: 30-day lifetime

var (
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrExpiredToken = errors.New("bearer token expired")
)

type Servicer interface {
	Create(ctx context.Context, userID int) (string, error)
	Validate(ctx context.Context, token string) (int, error)
}

type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

type claims struct {
	jwt.RegisteredClaims
}

// Create mints a bearer carrying only userId, per spec.md §4.4 ("opaque to
// the client, carries only userId").
func (s *Service) Create(_ context.Context, userID int) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

func (s *Service) Validate(_ context.Context, token string) (int, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpiredToken
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	var userID int
	if _, err := fmt.Sscanf(c.Subject, "%d", &userID); err != nil {
		return 0, ErrInvalidToken
	}

	return userID, nil
}
