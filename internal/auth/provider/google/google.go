package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"identity-broker/internal/auth"
	"identity-broker/internal/auth/provider/oidcflow"
	"identity-broker/internal/config"
)

const issuer = "https://accounts.google.com"

// New discovers Google's OIDC configuration and returns a provider.
func New(ctx context.Context, cfg *config.GoogleConfig) (*oidcflow.Flow, error) {
	if cfg == nil || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return oidcflow.New(auth.ProviderGoogle, oauthCfg, verifier), nil
}
