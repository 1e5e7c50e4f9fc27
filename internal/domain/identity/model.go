// Package identity holds the canonical user record the auth boundary upserts
// after verifying an OAuth ID token (or accepting an internal credential),
// per spec.md §4.4.
package identity

import "time"

type Identity struct {
	ID         int
	ProviderID string
	Email      string
	Name       string
	Image      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
