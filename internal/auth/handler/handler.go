package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/auth/provider"
	"identity-broker/internal/client"
	"identity-broker/internal/federation"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/metrics"
	"identity-broker/internal/middleware"
	"identity-broker/internal/session"
	"identity-broker/internal/token"
	"identity-broker/internal/view"
)

// Deps are the components the entry points share.
type Deps struct {
	Clients    *client.Registry
	Identities *identity.Service
	Sessions   *session.Manager
	Federation *federation.Orchestrator
	Providers  *provider.Registry
	Tokens     *token.Issuer
	Gate       *middleware.AuthMiddleware
	Limiter    *middleware.RateLimiter
	Views      *view.Renderer
	Metrics    *metrics.Metrics
	Cookie     session.CookieOptions
	// FlowTTL bounds the nonce and PKCE cookies of a federated login.
	FlowTTL time.Duration
}

// Handler serves the browser (redirect/HTML) and API (JSON) renderings
// of the same sign-in flows.
type Handler struct {
	clients    *client.Registry
	identities *identity.Service
	sessions   *session.Manager
	federation *federation.Orchestrator
	providers  *provider.Registry
	tokens     *token.Issuer
	gate       *middleware.AuthMiddleware
	limiter    *middleware.RateLimiter
	views      *view.Renderer
	metrics    *metrics.Metrics
	cookie     session.CookieOptions
	flowTTL    time.Duration
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		clients:    d.Clients,
		identities: d.Identities,
		sessions:   d.Sessions,
		federation: d.Federation,
		providers:  d.Providers,
		tokens:     d.Tokens,
		gate:       d.Gate,
		limiter:    d.Limiter,
		views:      d.Views,
		metrics:    d.Metrics,
		cookie:     d.Cookie,
		flowTTL:    d.FlowTTL,
	}
}

// RegisterRoutes classifies every route as guest-only, protected or ungated.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	guest := middleware.GinRequireGuest(h.gate)
	protected := middleware.GinRequireAuth(h.gate)
	limit := middleware.GinRateLimit(h.limiter)

	r.GET("/auth/login", guest, h.loginPage)
	r.POST("/auth/login", limit, guest, h.loginWeb)
	r.GET("/auth/register", guest, h.registerPage)
	r.POST("/auth/register", limit, guest, h.registerWeb)
	r.GET("/oauth/login/:provider", guest, h.federatedStartWeb)
	r.GET("/oauth/callback/:provider", guest, h.federatedCallback)

	r.GET("/profile", protected, h.profile)

	// Logout is ungated: a caller without a live session still gets the
	// client-aware redirect.
	r.GET("/auth/logout", h.logoutWeb)
	r.POST("/auth/logout", h.logoutWeb)

	api := r.Group("/api")
	api.POST("/auth/login", limit, guest, h.loginAPI)
	api.POST("/auth/register", limit, guest, h.registerAPI)
	api.GET("/oauth/login/:provider", guest, h.federatedStartAPI)
	api.POST("/auth/logout", h.logoutAPI)
	api.GET("/me", protected, h.me)

	for _, route := range r.Routes() {
		logger.Debug("route registered", map[string]any{"method": route.Method, "path": route.Path})
	}
}

func (h *Handler) enabledProviders() []string {
	kinds := h.providers.Enabled()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.String())
	}
	return out
}
