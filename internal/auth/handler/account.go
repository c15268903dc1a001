package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/auth"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/middleware"
	"identity-broker/internal/session"
	"identity-broker/internal/view"
)

func principal(c *gin.Context) (*identity.Principal, bool) {
	return middleware.PrincipalFromContext(c.Request.Context())
}

// profile is the landing page. With a client context it completes the
// token exchange for an already signed-in user.
func (h *Handler) profile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		h.renderFailure(c, auth.ErrUnauthenticated)
		return
	}

	cc := queryClientContext(c)
	if cc.present() {
		cl, err := h.validateClient(c.Request.Context(), cc)
		if err != nil {
			h.renderFailure(c, err)
			return
		}
		_, location, err := h.deliverToken(p, cl, cc.RedirectURL)
		if err != nil {
			h.renderFailure(c, err)
			return
		}
		c.Redirect(http.StatusFound, location)
		return
	}

	pub := p.Public()
	h.render(c, http.StatusOK, view.PageProfile, view.Profile{
		Notice:          formNotice(c).Text(),
		Username:        pub.Username,
		Email:           pub.Email,
		DisplayImageURL: pub.DisplayImageURL,
		Providers:       pub.Providers,
	})
}

func (h *Handler) me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		writeError(c, auth.ErrUnauthenticated)
		return
	}
	writeOK(c, http.StatusOK, p.Public())
}

// endSession destroys the caller's session, if any, and clears the cookie.
// It returns the client redirect to follow, or "" for the default destination.
func (h *Handler) endSession(c *gin.Context) (string, error) {
	_, s, err := h.gate.Authenticate(c.Request)
	switch {
	case err == nil:
		if err := h.sessions.Destroy(c.Request.Context(), s.SessionID); err != nil {
			return "", err
		}
		logger.Info("logged out", map[string]any{"user_id": s.UserID})
	case !errors.Is(err, auth.ErrUnauthenticated):
		return "", err
	}
	session.ClearCookie(c.Writer, h.cookie)

	cc := queryClientContext(c)
	if !cc.present() {
		return "", nil
	}
	if _, err := h.validateClient(c.Request.Context(), cc); err != nil {
		return "", nil
	}
	return cc.RedirectURL, nil
}

func (h *Handler) logoutWeb(c *gin.Context) {
	next, err := h.endSession(c)
	if err != nil {
		h.renderFailure(c, err)
		return
	}
	if next == "" {
		next = middleware.WithNotice(middleware.LoginPath, middleware.NoticeLoggedOut)
	}
	c.Redirect(http.StatusFound, next)
}

func (h *Handler) logoutAPI(c *gin.Context) {
	next, err := h.endSession(c)
	if err != nil {
		writeError(c, err)
		return
	}
	data := gin.H{}
	if next != "" {
		data["redirectUrl"] = next
	}
	writeOK(c, http.StatusOK, data)
}
