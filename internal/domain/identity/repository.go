package identity

import "context"

// Repository persists canonical user identities, keyed by the OAuth
// provider's subject id.
type Repository interface {
	UpsertByProviderID(ctx context.Context, providerID, email, name, image string) (Identity, error)
	FindByID(ctx context.Context, id int) (Identity, error)
}
