package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("s", 32)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.StateTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Zero(t, cfg.SessionIdleTimeout)
	assert.True(t, cfg.StateBindBrowser)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, SessionRedis, cfg.SessionBackend)
	assert.Equal(t, LinkEmail, cfg.LinkPolicy)
	assert.Equal(t, secret, cfg.StateSecret, "state secret falls back to the jwt secret")

	assert.Nil(t, cfg.Google)
	assert.Nil(t, cfg.Facebook)
	assert.Nil(t, cfg.Keycloak)
	assert.Empty(t, cfg.EnabledProviders())
}

func TestLoadProviders(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PUBLIC_BASE_URL", "https://id.example.com/")
	t.Setenv("GOOGLE_CLIENT_ID", "gid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("FACEBOOK_APP_ID", "fid")
	t.Setenv("FACEBOOK_REDIRECT_URL", "https://id.example.com/custom")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Google)
	assert.Equal(t, "https://id.example.com/oauth/callback/google", cfg.Google.RedirectURL)

	assert.Nil(t, cfg.Facebook, "facebook needs both app id and secret")
	assert.Equal(t, []string{"google"}, cfg.EnabledProviders())
}

func TestLoadSeedClient(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SEED_CLIENT_ID", "c1")
	t.Setenv("SEED_CLIENT_NAME", "demo")
	t.Setenv("SEED_CLIENT_REDIRECT_URLS", "https://app/cb,https://app/cb2")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.SeedClient)
	assert.Equal(t, "c1", cfg.SeedClient.PublicID)
	assert.Equal(t, []string{"https://app/cb", "https://app/cb2"}, cfg.SeedClient.RedirectURLs)

	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "broker.db")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_CLIENT")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			JWTSecret:      secret,
			StateSecret:    secret,
			TokenTTL:       time.Hour,
			StateTTL:       time.Minute,
			SessionTTL:     time.Hour,
			StorageDriver:  DriverMemory,
			SessionBackend: SessionMemory,
			LinkPolicy:     LinkNever,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: "JWT_SECRET"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.StorageDriver = DriverSQLite }, wantErr: "DATABASE_DSN"},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "mongo" }, wantErr: "STORAGE_DRIVER"},
		{name: "unknown backend", mutate: func(c *Config) { c.SessionBackend = "disk" }, wantErr: "SESSION_BACKEND"},
		{name: "unknown policy", mutate: func(c *Config) { c.LinkPolicy = "always" }, wantErr: "FEDERATION_LINK_POLICY"},
		{name: "zero token ttl", mutate: func(c *Config) { c.TokenTTL = 0 }, wantErr: "TOKEN_TTL"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
