// Package oauth narrows the external OAuth identity provider down to the one
// operation the auth boundary needs, per spec.md §1's "treated as a black-box
// ... service" framing. Production wiring plugs in a single real verifier;
// tests substitute Stub.
package oauth

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid id token")

// Claims is the canonical identity an ID token resolves to.
type Claims struct {
	ProviderID string
	Email      string
	Name       string
	Image      string
}

type Verifier interface {
	Verify(ctx context.Context, idToken string) (Claims, error)
}

// Stub is a fixed-response Verifier for tests and for deployments that have
// not wired a real provider yet.
type Stub struct {
	Claims Claims
	Err    error
}

func (s Stub) Verify(_ context.Context, _ string) (Claims, error) {
	if s.Err != nil {
		return Claims{}, s.Err
	}
	return s.Claims, nil
}
