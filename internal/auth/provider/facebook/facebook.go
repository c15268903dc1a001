package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	fbendpoint "golang.org/x/oauth2/facebook"

	"identity-broker/internal/auth"
	"identity-broker/internal/config"
	"identity-broker/internal/logger"
)

const defaultGraphURL = "https://graph.facebook.com/v19.0/me"

// Provider implements Facebook Login. Facebook is not an OIDC provider on
// this flow, so the profile comes from the Graph API.
type Provider struct {
	oauthConfig *oauth2.Config
	graphURL    string
}

type Option func(*Provider)

// WithEndpoint overrides the OAuth endpoints.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(p *Provider) { p.oauthConfig.Endpoint = ep }
}

// WithGraphURL overrides the profile endpoint.
func WithGraphURL(u string) Option {
	return func(p *Provider) { p.graphURL = u }
}

func New(cfg *config.FacebookConfig, opts ...Option) (*Provider, error) {
	if cfg == nil || cfg.AppID == "" || cfg.AppSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("facebook oauth config missing required fields")
	}

	p := &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     fbendpoint.Endpoint,
			Scopes:       []string{"email", "public_profile"},
		},
		graphURL: defaultGraphURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Kind() auth.Provider {
	return auth.ProviderFacebook
}

func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type graphProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {
	token, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("facebook token exchange failed: %w", err)
	}

	u, err := url.Parse(p.graphURL)
	if err != nil {
		return nil, fmt.Errorf("facebook graph url: %w", err)
	}
	q := u.Query()
	q.Set("fields", "id,name,email,picture")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("facebook profile request failed: status %d", resp.StatusCode)
	}

	var profile graphProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("facebook profile decode failed: %w", err)
	}
	if profile.ID == "" {
		return nil, errors.New("facebook profile missing id")
	}

	logger.Info("facebook profile fetched", map[string]any{
		"email_present": profile.Email != "",
	})

	return &auth.Identity{
		Provider:       auth.ProviderFacebook,
		ProviderUserID: profile.ID,
		Email:          profile.Email,
		// Graph does not assert verification.
		EmailVerified: false,
		DisplayName:   profile.Name,
		AvatarURL:     profile.Picture.Data.URL,
	}, nil
}
