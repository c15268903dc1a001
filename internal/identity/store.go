package identity

import (
	"context"

	"identity-broker/internal/auth"
)

// Store persists principals. Lookups return auth.ErrNotFound when nothing
// matches. Create and LinkIdentity return auth.ErrAlreadyExists on any
// uniqueness conflict (email, username or provider identity).
type Store interface {
	ByID(ctx context.Context, id string) (*Record, error)
	ByEmail(ctx context.Context, email string) (*Record, error)
	ByFederatedIdentity(ctx context.Context, provider auth.Provider, providerUserID string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	LinkIdentity(ctx context.Context, userID string, provider auth.Provider, providerUserID string) error
}
