package provider

import (
	"context"

	"identity-broker/internal/auth"
)

// OAuthProvider is one external identity provider. It only reports who the
// user is; creating, linking and signing in principals happen elsewhere.
type OAuthProvider interface {
	Kind() auth.Provider

	// AuthCodeURL builds the authorization redirect. The caller owns the
	// state value and the S256 code challenge.
	AuthCodeURL(state, codeChallenge string) string

	// ExchangeCode redeems code with the PKCE verifier and returns the
	// provider's profile of the user.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*auth.Identity, error)
}
