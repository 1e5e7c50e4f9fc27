package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"daylog/internal/domain/authtoken"
	"daylog/internal/domain/oauth"
)

var ErrBadInternalCredential = errors.New("invalid internal credential")

// Servicer is the auth boundary's business logic: exchange an external or
// internal credential for a bearer token, and resolve a bearer back to its
// identity (spec.md §4.4).
type Servicer interface {
	ExchangeGoogle(ctx context.Context, idToken string) (Identity, string, error)
	ExchangeInternal(ctx context.Context, secret, providerID, email, name, image string) (Identity, string, error)
	Me(ctx context.Context, userID int) (Identity, error)
}

type Service struct {
	repo               Repository
	verifier           oauth.Verifier
	tokens             authtoken.Servicer
	internalSecretHash string
	log                *slog.Logger
}

func NewService(repo Repository, verifier oauth.Verifier, tokens authtoken.Servicer, internalSecretHash string, log *slog.Logger) *Service {
	return &Service{
		repo:               repo,
		verifier:           verifier,
		tokens:             tokens,
		internalSecretHash: internalSecretHash,
		log:                log.With("component", "identity_service"),
	}
}

func (s *Service) ExchangeGoogle(ctx context.Context, idToken string) (Identity, string, error) {
	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return Identity{}, "", fmt.Errorf("verify google id token: %w", err)
	}

	id, err := s.repo.UpsertByProviderID(ctx, claims.ProviderID, claims.Email, claims.Name, claims.Image)
	if err != nil {
		return Identity{}, "", fmt.Errorf("upsert identity: %w", err)
	}

	token, err := s.tokens.Create(ctx, id.ID)
	if err != nil {
		return Identity{}, "", fmt.Errorf("issue token: %w", err)
	}

	return id, token, nil
}

func (s *Service) ExchangeInternal(ctx context.Context, secret, providerID, email, name, image string) (Identity, string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.internalSecretHash), []byte(secret)); err != nil {
		return Identity{}, "", ErrBadInternalCredential
	}

	id, err := s.repo.UpsertByProviderID(ctx, providerID, email, name, image)
	if err != nil {
		return Identity{}, "", fmt.Errorf("upsert identity: %w", err)
	}

	token, err := s.tokens.Create(ctx, id.ID)
	if err != nil {
		return Identity{}, "", fmt.Errorf("issue token: %w", err)
	}

	return id, token, nil
}

func (s *Service) Me(ctx context.Context, userID int) (Identity, error) {
	return s.repo.FindByID(ctx, userID)
}
