package oidcflow

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"identity-broker/internal/auth"
)

const (
	testIssuer   = "https://issuer.test"
	testClientID = "broker"
)

type tokenServer struct {
	*httptest.Server
	idToken string

	mu           sync.Mutex
	lastVerifier string
}

func (ts *tokenServer) verifier() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastVerifier
}

func newTokenServer(t *testing.T, idToken string) *tokenServer {
	t.Helper()
	ts := &tokenServer{idToken: idToken}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		ts.mu.Lock()
		ts.lastVerifier = r.PostForm.Get("code_verifier")
		ts.mu.Unlock()
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     ts.idToken,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newFlow(t *testing.T, key *rsa.PrivateKey, tokenURL string) *Flow {
	t.Helper()
	verifier := oidc.NewVerifier(testIssuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, &oidc.Config{ClientID: testClientID})
	cfg := &oauth2.Config{
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "https://broker/oauth/callback/keycloak",
		Endpoint: oauth2.Endpoint{
			AuthURL:   testIssuer + "/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{oidc.ScopeOpenID, "email"},
	}
	return New(auth.ProviderKeycloak, cfg, verifier)
}

func TestAuthCodeURLCarriesStateAndChallenge(t *testing.T) {
	t.Parallel()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := newFlow(t, key, "http://unused")
	u, err := url.Parse(f.AuthCodeURL("opaque-state", "challenge"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "opaque-state", q.Get("state"))
	assert.Equal(t, "challenge", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, auth.ProviderKeycloak, f.Kind())
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Now()
	idToken := signIDToken(t, key, jwt.MapClaims{
		"iss":                testIssuer,
		"aud":                testClientID,
		"sub":                "kc-123",
		"email":              "alice@x.com",
		"email_verified":     true,
		"preferred_username": "alice",
		"iat":                now.Unix(),
		"exp":                now.Add(time.Hour).Unix(),
	})
	ts := newTokenServer(t, idToken)
	f := newFlow(t, key, ts.URL)

	id, err := f.ExchangeCode(context.Background(), "good-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "the-verifier", ts.verifier())
	assert.Equal(t, &auth.Identity{
		Provider:       auth.ProviderKeycloak,
		ProviderUserID: "kc-123",
		Email:          "alice@x.com",
		EmailVerified:  true,
		DisplayName:    "alice",
	}, id)
}

func TestExchangeCodeFailures(t *testing.T) {
	t.Parallel()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	now := time.Now()
	base := jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testClientID,
		"sub":   "kc-123",
		"email": "alice@x.com",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	with := func(k string, v any) jwt.MapClaims {
		c := jwt.MapClaims{}
		for key, val := range base {
			c[key] = val
		}
		if v == nil {
			delete(c, k)
		} else {
			c[k] = v
		}
		return c
	}

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{"rejected code", signIDToken(t, key, base), "bad-code"},
		{"wrong signing key", signIDToken(t, other, base), "good-code"},
		{"wrong audience", signIDToken(t, key, with("aud", "someone-else")), "good-code"},
		{"expired", signIDToken(t, key, with("exp", now.Add(-time.Hour).Unix())), "good-code"},
		{"no email", signIDToken(t, key, with("email", nil)), "good-code"},
		{"no id token", "", "good-code"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTokenServer(t, tt.token)
			_, err := newFlow(t, key, ts.URL).ExchangeCode(context.Background(), tt.code, "v")
			require.Error(t, err)
		})
	}
}
