package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"identity-broker/internal/auth"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/session"
)

// unexported, collision-proof context keys
type principalContextKeyType struct{}
type sessionContextKeyType struct{}

var (
	principalKey = principalContextKeyType{}
	sessionKey   = sessionContextKeyType{}
)

// PrincipalFromContext extracts the authenticated principal from context.
func PrincipalFromContext(ctx context.Context) (*identity.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*identity.Principal)
	return p, ok && p != nil
}

// SessionFromContext extracts the live session from context.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// WithPrincipal attaches an authenticated principal and its session to ctx.
func WithPrincipal(ctx context.Context, p *identity.Principal, s *session.Session) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, sessionKey, s)
}

type Sessions interface {
	Resolve(ctx context.Context, handle string) (*session.Session, error)
}

type Principals interface {
	Get(ctx context.Context, id string) (*identity.Principal, error)
}

// Paths the gate redirects browsers to.
const (
	LoginPath      = "/auth/login"
	LandingPath    = "/profile"
	APILandingPath = "/api/me"
)

type AuthMiddleware struct {
	Sessions   Sessions
	Principals Principals
	Cookie     session.CookieOptions
}

func NewAuthMiddleware(sessions Sessions, principals Principals, cookie session.CookieOptions) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions, Principals: principals, Cookie: cookie}
}

// Authenticate resolves the request's session cookie into a principal.
// Every way of not having a live session returns auth.ErrUnauthenticated.
func (a *AuthMiddleware) Authenticate(r *http.Request) (*identity.Principal, *session.Session, error) {
	handle := session.ReadCookie(r, a.Cookie)
	if handle == "" {
		return nil, nil, auth.ErrUnauthenticated
	}

	sess, err := a.Sessions.Resolve(r.Context(), handle)
	if err != nil {
		return nil, nil, err
	}

	p, err := a.Principals.Get(r.Context(), sess.UserID)
	if errors.Is(err, auth.ErrNotFound) {
		return nil, nil, auth.ErrUnauthenticated
	}
	if err != nil {
		return nil, nil, err
	}
	return p, sess, nil
}

// authenticated resolves the caller and reports storage failures to w.
// ok is false when the response has already been written.
func (a *AuthMiddleware) authenticated(w http.ResponseWriter, r *http.Request) (p *identity.Principal, s *session.Session, ok bool) {
	p, s, err := a.Authenticate(r)
	if err == nil {
		return p, s, true
	}
	if errors.Is(err, auth.ErrUnauthenticated) {
		return nil, nil, true
	}

	logger.Error("session lookup failed", map[string]any{"error": err})
	if IsAPIRequest(r) {
		WriteJSONError(w, http.StatusInternalServerError, "server_error", "internal error")
	} else {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	return nil, nil, false
}

// RequireAuth lets the request through only with a live session.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, s, ok := a.authenticated(w, r)
		if !ok {
			return
		}

		switch Decide(p != nil, Protected, IsAPIRequest(r)) {
		case DenyJSON:
			WriteJSONError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		case RedirectToLogin:
			http.Redirect(w, r, WithNotice(LoginPath, NoticeLoginRequired), http.StatusFound)
		default:
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p, s)))
		}
	})
}

// RequireGuest sends callers that already have a session to the landing
// page, forwarding an in-flight clientId/redirectUrl pair.
func (a *AuthMiddleware) RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _, ok := a.authenticated(w, r)
		if !ok {
			return
		}

		api := IsAPIRequest(r)
		if Decide(p != nil, GuestOnly, api) == RedirectToLanding {
			landing := LandingPath
			if api {
				landing = APILandingPath
			}
			http.Redirect(w, r, forwardClient(landing, r.URL.Query()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// forwardClient copies the client context query parameters onto path.
func forwardClient(path string, q url.Values) string {
	clientID, redirectURL := q.Get("clientId"), q.Get("redirectUrl")
	if clientID == "" && redirectURL == "" {
		return path
	}
	fwd := url.Values{}
	if clientID != "" {
		fwd.Set("clientId", clientID)
	}
	if redirectURL != "" {
		fwd.Set("redirectUrl", redirectURL)
	}
	return path + "?" + fwd.Encode()
}

// WriteJSONError writes the error envelope shared by every API response.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"error":   code,
		"message": message,
	})
}
