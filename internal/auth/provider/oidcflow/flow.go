// Package oidcflow holds the authorization code + PKCE exchange shared by
// the OIDC providers (google, keycloak).
package oidcflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"identity-broker/internal/auth"
	"identity-broker/internal/logger"
)

type Flow struct {
	kind        auth.Provider
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

func New(kind auth.Provider, cfg *oauth2.Config, verifier *oidc.IDTokenVerifier) *Flow {
	return &Flow{kind: kind, oauthConfig: cfg, verifier: verifier}
}

// Kind returns the provider identifier used by the registry.
func (f *Flow) Kind() auth.Provider {
	return f.kind
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (f *Flow) AuthCodeURL(state string, codeChallenge string) string {
	return f.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type idClaims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
}

// ExchangeCode redeems code, verifies the ID token and returns its claims
// as an identity.
func (f *Flow) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {
	token, err := f.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", f.kind, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s did not return id_token", f.kind)
	}

	idToken, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s id_token verification failed: %w", f.kind, err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s id_token claims parse failed: %w", f.kind, err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("id_token missing required claims")
	}

	logger.Info("oidc id_token verified", map[string]any{
		"provider":       f.kind.String(),
		"issuer":         idToken.Issuer,
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}

	return &auth.Identity{
		Provider:       f.kind,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		DisplayName:    name,
		AvatarURL:      claims.Picture,
	}, nil
}
