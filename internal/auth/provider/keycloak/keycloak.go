package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"identity-broker/internal/auth"
	"identity-broker/internal/auth/provider/oidcflow"
	"identity-broker/internal/config"
)

// New initializes a Keycloak OIDC provider using discovery.
// cfg.Issuer must be the realm issuer URL, e.g.
// http://localhost:8081/realms/identity-broker
func New(ctx context.Context, cfg *config.KeycloakConfig) (*oidcflow.Flow, error) {
	if cfg == nil || cfg.Issuer == "" || cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, errors.New("keycloak oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init keycloak oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	ep := oidcProvider.Endpoint()
	// The browser may reach Keycloak on a different host than this server does.
	if cfg.PublicBaseURL != "" {
		ep.AuthURL, err = Rebase(ep.AuthURL, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     ep,
		Scopes: []string{
			oidc.ScopeOpenID,
			"email",
			"profile",
		},
	}

	return oidcflow.New(auth.ProviderKeycloak, oauthCfg, verifier), nil
}

// Rebase swaps the scheme and host of endpoint for those of base, keeping the path.
func Rebase(endpoint, base string) (string, error) {
	e, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse keycloak endpoint: %w", err)
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" || b.Host == "" {
		return "", fmt.Errorf("invalid keycloak public base url %q", base)
	}
	e.Scheme = b.Scheme
	e.Host = b.Host
	return e.String(), nil
}
