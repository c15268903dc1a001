package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/auth/handler"
	"identity-broker/internal/client"
	"identity-broker/internal/config"
	"identity-broker/internal/federation"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/metrics"
	"identity-broker/internal/middleware"
	"identity-broker/internal/session"
	"identity-broker/internal/token"
	"identity-broker/internal/view"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	router, err := newRouter(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}
	return router, infra.Close, nil
}

func newRouter(ctx context.Context, cfg config.Config, infra *Infra) (*gin.Engine, error) {
	providers, err := setupProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	policy, err := identity.ParseLinkPolicy(cfg.LinkPolicy)
	if err != nil {
		return nil, err
	}

	views, err := view.New()
	if err != nil {
		return nil, err
	}

	identities := identity.NewService(infra.Identities, identity.WithLinkPolicy(policy))
	sessions := session.NewManager(infra.Sessions, session.Config{
		TTL:         cfg.SessionTTL,
		IdleTimeout: cfg.SessionIdleTimeout,
	})
	cookie := session.CookieOptions{
		Name:     cfg.CookieName,
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	states := federation.NewStateCodec([]byte(cfg.StateSecret), cfg.StateTTL)
	m := metrics.New()

	authHandler := handler.NewHandler(handler.Deps{
		Clients:    client.NewRegistry(infra.Clients),
		Identities: identities,
		Sessions:   sessions,
		Federation: federation.NewOrchestrator(providers, identities, states, cfg.StateBindBrowser),
		Providers:  providers,
		Tokens:     token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenIssuer, cfg.TokenTTL),
		Gate:       middleware.NewAuthMiddleware(sessions, identities, cookie),
		Limiter:    middleware.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst),
		Views:      views,
		Metrics:    m,
		Cookie:     cookie,
		FlowTTL:    cfg.StateTTL,
	})

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	return router, nil
}

// requestLogger logs route patterns only. Raw URLs carry authorization
// codes and tokens.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" || route == "/health" || route == "/metrics" {
			return
		}
		logger.Debug("request", map[string]any{
			"method":  c.Request.Method,
			"route":   route,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}
