package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"identity-broker/internal/auth"
	"identity-broker/internal/utils"
)

const secretBytes = 32

// Registry looks up clients and validates redirect destinations.
type Registry struct {
	store Store
	now   func() time.Time
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

func (r *Registry) Lookup(ctx context.Context, publicID string) (*Client, error) {
	if publicID == "" {
		return nil, auth.ErrUnknownClient
	}
	c, err := r.store.ByPublicID(ctx, publicID)
	if errors.Is(err, ErrNotFound) {
		return nil, auth.ErrUnknownClient
	}
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	return c, nil
}

// Validate resolves publicID and checks redirectURL against its redirect set.
// Callers must not mint a token or follow redirectURL unless this returns nil.
func (r *Registry) Validate(ctx context.Context, publicID, redirectURL string) (*Client, error) {
	c, err := r.Lookup(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !IsRedirectAllowed(c, redirectURL) {
		return nil, auth.ErrInvalidRedirect
	}
	return c, nil
}

// Register creates a client. The returned secret is never shown again.
func (r *Registry) Register(ctx context.Context, name string, origins, redirectURLs []string) (*Client, error) {
	return r.Seed(ctx, "", name, origins, redirectURLs)
}

// Seed is Register with a caller-chosen public id, for deployments whose
// clients are declared in configuration. An empty publicID gets a uuid.
func (r *Registry) Seed(ctx context.Context, publicID, name string, origins, redirectURLs []string) (*Client, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		publicID = uuid.NewString()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("client name is required")
	}

	redirects := compact(redirectURLs)
	if len(redirects) == 0 {
		return nil, errors.New("at least one redirect url is required")
	}

	secret, err := utils.RandomHex(secretBytes)
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:             uuid.NewString(),
		PublicID:       publicID,
		Name:           name,
		Secret:         secret,
		AllowedOrigins: compact(origins),
		RedirectURLs:   redirects,
		CreatedAt:      r.now().UTC().Truncate(time.Millisecond),
	}

	if err := r.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// compact trims entries and drops blanks and duplicates, keeping order.
// Redirect URLs themselves are stored byte-for-byte after trimming.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
