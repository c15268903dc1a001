package provider

import (
	"fmt"

	"identity-broker/internal/auth"
)

// Registry holds one slot per provider variant. A nil slot means the
// provider's credentials were not configured.
type Registry struct {
	Google   OAuthProvider
	Facebook OAuthProvider
	Keycloak OAuthProvider
}

// Get dispatches on the provider tag.
func (r *Registry) Get(kind auth.Provider) (OAuthProvider, error) {
	var p OAuthProvider
	switch kind {
	case auth.ProviderGoogle:
		p = r.Google
	case auth.ProviderFacebook:
		p = r.Facebook
	case auth.ProviderKeycloak:
		p = r.Keycloak
	default:
		return nil, fmt.Errorf("%w: %q", auth.ErrUnknownProvider, kind)
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", kind, auth.ErrProviderNotConfigured)
	}
	return p, nil
}

// Enabled lists configured providers in display order.
func (r *Registry) Enabled() []auth.Provider {
	var out []auth.Provider
	for _, kind := range auth.FederatedProviders {
		if _, err := r.Get(kind); err == nil {
			out = append(out, kind)
		}
	}
	return out
}
