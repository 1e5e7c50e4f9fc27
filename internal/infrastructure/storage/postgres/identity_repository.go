package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/identity"
)

// IdentityRepository stores the OAuth-identity shape spec.md §4.4 needs:
// one row per external provider subject, upserted on every successful
// verify.
type IdentityRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewIdentityRepository(pool *pgxpool.Pool, log *slog.Logger) *IdentityRepository {
	return &IdentityRepository{pool: pool, log: log.With("component", "identity_repository")}
}

func (r *IdentityRepository) UpsertByProviderID(ctx context.Context, providerID, email, name, image string) (identity.Identity, error) {
	const query = `
		INSERT INTO identities (provider_id, email, name, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (provider_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			image = EXCLUDED.image,
			updated_at = NOW()
		RETURNING id, provider_id, email, name, image, created_at, updated_at`

	var id identity.Identity
	err := r.pool.QueryRow(ctx, query, providerID, email, name, image).Scan(
		&id.ID, &id.ProviderID, &id.Email, &id.Name, &id.Image, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		r.log.Error("upsert identity failed", "provider_id", providerID, "error", err)
		return identity.Identity{}, fmt.Errorf("upsert identity: %w", err)
	}
	return id, nil
}

func (r *IdentityRepository) FindByID(ctx context.Context, userID int) (identity.Identity, error) {
	const query = `SELECT id, provider_id, email, name, image, created_at, updated_at FROM identities WHERE id = $1`

	var id identity.Identity
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&id.ID, &id.ProviderID, &id.Email, &id.Name, &id.Image, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Identity{}, identity.ErrNotFound
		}
		return identity.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	return id, nil
}
