package app

import (
	"context"
	"errors"
	"fmt"

	"identity-broker/internal/auth/provider"
	"identity-broker/internal/auth/provider/facebook"
	"identity-broker/internal/auth/provider/google"
	"identity-broker/internal/auth/provider/keycloak"
	"identity-broker/internal/client"
	"identity-broker/internal/config"
	"identity-broker/internal/db"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/redis"
	"identity-broker/internal/session"
)

// Infra holds the external connections. DB and Redis are nil when the
// memory backends are configured.
type Infra struct {
	DB    *db.DB
	Redis *redis.Client

	Clients    client.Store
	Identities identity.Store
	Sessions   session.Store
}

func setupInfra(ctx context.Context, cfg config.Config) (_ *Infra, err error) {
	infra := &Infra{}
	defer func() {
		if err != nil {
			_ = infra.Close()
		}
	}()

	switch cfg.StorageDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart", nil)
		infra.Clients = client.NewMemoryStore()
		infra.Identities = identity.NewMemoryStore()
		if err = seedClient(ctx, cfg.SeedClient, infra.Clients); err != nil {
			return nil, err
		}
	default:
		infra.DB, err = db.Open(ctx, cfg.StorageDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err = infra.DB.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Info("database ready", map[string]any{"driver": cfg.StorageDriver})
		infra.Clients = client.NewSQLStore(infra.DB)
		infra.Identities = identity.NewSQLStore(infra.DB)
	}

	switch cfg.SessionBackend {
	case config.SessionMemory:
		infra.Sessions = session.NewMemoryStore()
	default:
		infra.Redis, err = redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		logger.Info("redis ready", nil)
		infra.Sessions = session.NewRedisStore(infra.Redis.Client)
	}

	return infra, nil
}

// seedClient registers the configured client. The memory driver has no
// other way to get one.
func seedClient(ctx context.Context, seed *config.SeedClientConfig, store client.Store) error {
	if seed == nil {
		logger.Warn("memory storage without SEED_CLIENT_*: no client can receive tokens", nil)
		return nil
	}
	c, err := client.NewRegistry(store).Seed(ctx, seed.PublicID, seed.Name, seed.Origins, seed.RedirectURLs)
	if err != nil {
		return fmt.Errorf("seed client: %w", err)
	}
	logger.Info("seed client registered", map[string]any{"client_id": c.PublicID, "redirects": len(c.RedirectURLs)})
	return nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	return errors.Join(errs...)
}

// setupProviders fills a slot for every provider with complete credentials.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	reg := &provider.Registry{}

	if cfg.Google != nil {
		p, err := google.New(ctx, cfg.Google)
		if err != nil {
			return nil, fmt.Errorf("google: %w", err)
		}
		reg.Google = p
	}
	if cfg.Facebook != nil {
		p, err := facebook.New(cfg.Facebook)
		if err != nil {
			return nil, fmt.Errorf("facebook: %w", err)
		}
		reg.Facebook = p
	}
	if cfg.Keycloak != nil {
		p, err := keycloak.New(ctx, cfg.Keycloak)
		if err != nil {
			return nil, fmt.Errorf("keycloak: %w", err)
		}
		reg.Keycloak = p
	}

	logger.Info("federated providers configured", map[string]any{"providers": cfg.EnabledProviders()})
	return reg, nil
}
