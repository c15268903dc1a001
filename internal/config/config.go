package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const minSecretLength = 32

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Session backends.
const (
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

// Federation link policies.
const (
	LinkEmail         = "email"
	LinkVerifiedEmail = "verified_email"
	LinkNever         = "never"
)

type Config struct {
	AppPort       string
	PublicBaseURL string

	JWTSecret   string
	TokenTTL    time.Duration
	TokenIssuer string

	StateSecret      string
	StateTTL         time.Duration
	StateBindBrowser bool

	SessionTTL         time.Duration
	SessionIdleTimeout time.Duration
	SessionBackend     string
	CookieSecure       bool
	CookieName         string

	StorageDriver string
	DatabaseDSN   string

	RedisAddr     string
	RedisPassword string

	LinkPolicy string

	LoginRatePerMinute int
	LoginRateBurst     int

	// A provider sub-config is nil unless all of its credentials are set.
	Google   *GoogleConfig
	Facebook *FacebookConfig
	Keycloak *KeycloakConfig

	// SeedClient is registered at startup by the memory storage driver,
	// which has no admin CLI. Nil unless a name and redirect URLs are set.
	SeedClient *SeedClientConfig
}

type SeedClientConfig struct {
	PublicID     string
	Name         string
	RedirectURLs []string
	Origins      []string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type FacebookConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string
}

type KeycloakConfig struct {
	Issuer        string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	PublicBaseURL string
}

// rawEnv holds env values before provider sub-configs are resolved.
type rawEnv struct {
	AppPort       string `env:"APP_PORT"        envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"    envDefault:"1h"`
	TokenIssuer string        `env:"TOKEN_ISSUER" envDefault:"identity-broker"`

	StateSecret      string        `env:"STATE_SECRET"`
	StateTTL         time.Duration `env:"STATE_TTL"          envDefault:"10m"`
	StateBindBrowser bool          `env:"STATE_BIND_BROWSER" envDefault:"true"`

	SessionTTL         time.Duration `env:"SESSION_TTL"          envDefault:"24h"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"0s"`
	SessionBackend     string        `env:"SESSION_BACKEND"      envDefault:"redis"`
	CookieSecure       bool          `env:"COOKIE_SECURE"        envDefault:"true"`
	CookieName         string        `env:"COOKIE_NAME"          envDefault:"__Host-session"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseDSN   string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	LinkPolicy string `env:"FEDERATION_LINK_POLICY" envDefault:"email"`

	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"30"`
	LoginRateBurst     int `env:"LOGIN_RATE_BURST"      envDefault:"10"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	FacebookAppID       string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret   string `env:"FACEBOOK_APP_SECRET"`
	FacebookRedirectURL string `env:"FACEBOOK_REDIRECT_URL"`

	KeycloakIssuer        string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID      string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret  string `env:"KEYCLOAK_CLIENT_SECRET"`
	KeycloakRedirectURL   string `env:"KEYCLOAK_REDIRECT_URL"`
	KeycloakPublicBaseURL string `env:"KEYCLOAK_PUBLIC_BASE_URL"`

	SeedClientID           string   `env:"SEED_CLIENT_ID"`
	SeedClientName         string   `env:"SEED_CLIENT_NAME"`
	SeedClientRedirectURLs []string `env:"SEED_CLIENT_REDIRECT_URLS" envSeparator:","`
	SeedClientOrigins      []string `env:"SEED_CLIENT_ORIGINS"       envSeparator:","`
}

// Load reads the process environment and validates the result.
func Load() (Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := fromRaw(raw)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromRaw(raw rawEnv) Config {
	base := strings.TrimRight(raw.PublicBaseURL, "/")

	cfg := Config{
		AppPort:            raw.AppPort,
		PublicBaseURL:      base,
		JWTSecret:          raw.JWTSecret,
		TokenTTL:           raw.TokenTTL,
		TokenIssuer:        raw.TokenIssuer,
		StateSecret:        raw.StateSecret,
		StateTTL:           raw.StateTTL,
		StateBindBrowser:   raw.StateBindBrowser,
		SessionTTL:         raw.SessionTTL,
		SessionIdleTimeout: raw.SessionIdleTimeout,
		SessionBackend:     strings.ToLower(strings.TrimSpace(raw.SessionBackend)),
		CookieSecure:       raw.CookieSecure,
		CookieName:         raw.CookieName,
		StorageDriver:      strings.ToLower(strings.TrimSpace(raw.StorageDriver)),
		DatabaseDSN:        raw.DatabaseDSN,
		RedisAddr:          raw.RedisAddr,
		RedisPassword:      raw.RedisPassword,
		LinkPolicy:         strings.ToLower(strings.TrimSpace(raw.LinkPolicy)),
		LoginRatePerMinute: raw.LoginRatePerMinute,
		LoginRateBurst:     raw.LoginRateBurst,
	}
	if cfg.StateSecret == "" {
		cfg.StateSecret = cfg.JWTSecret
	}

	if raw.GoogleClientID != "" && raw.GoogleClientSecret != "" {
		cfg.Google = &GoogleConfig{
			ClientID:     raw.GoogleClientID,
			ClientSecret: raw.GoogleClientSecret,
			RedirectURL:  orDefault(raw.GoogleRedirectURL, base+"/oauth/callback/google"),
		}
	}
	if raw.FacebookAppID != "" && raw.FacebookAppSecret != "" {
		cfg.Facebook = &FacebookConfig{
			AppID:       raw.FacebookAppID,
			AppSecret:   raw.FacebookAppSecret,
			RedirectURL: orDefault(raw.FacebookRedirectURL, base+"/oauth/callback/facebook"),
		}
	}
	// Keycloak public clients have no secret.
	if raw.KeycloakIssuer != "" && raw.KeycloakClientID != "" {
		cfg.Keycloak = &KeycloakConfig{
			Issuer:        raw.KeycloakIssuer,
			ClientID:      raw.KeycloakClientID,
			ClientSecret:  raw.KeycloakClientSecret,
			RedirectURL:   orDefault(raw.KeycloakRedirectURL, base+"/oauth/callback/keycloak"),
			PublicBaseURL: raw.KeycloakPublicBaseURL,
		}
	}
	if raw.SeedClientName != "" && len(raw.SeedClientRedirectURLs) > 0 {
		cfg.SeedClient = &SeedClientConfig{
			PublicID:     raw.SeedClientID,
			Name:         raw.SeedClientName,
			RedirectURLs: raw.SeedClientRedirectURLs,
			Origins:      raw.SeedClientOrigins,
		}
	}

	return cfg
}

// Validate reports configuration that would make the process unsafe or unable to start.
func (c Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if len(c.StateSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("STATE_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.StateTTL <= 0 {
		errs = append(errs, errors.New("STATE_TTL must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SessionIdleTimeout < 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TIMEOUT must not be negative"))
	}

	switch c.StorageDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("DATABASE_DSN is required for storage driver %q", c.StorageDriver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.SeedClient != nil && c.StorageDriver != DriverMemory {
		errs = append(errs, errors.New("SEED_CLIENT_* applies to the memory driver only; register SQL clients with brokerctl"))
	}

	switch c.SessionBackend {
	case SessionRedis, SessionMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}

	switch c.LinkPolicy {
	case LinkEmail, LinkVerifiedEmail, LinkNever:
	default:
		errs = append(errs, fmt.Errorf("unknown FEDERATION_LINK_POLICY %q", c.LinkPolicy))
	}

	return errors.Join(errs...)
}

// EnabledProviders lists the names of configured federated providers.
func (c Config) EnabledProviders() []string {
	var out []string
	if c.Google != nil {
		out = append(out, "google")
	}
	if c.Facebook != nil {
		out = append(out, "facebook")
	}
	if c.Keycloak != nil {
		out = append(out, "keycloak")
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
