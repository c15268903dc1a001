package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The state nonce and PKCE verifier of a federated login live only in the
// initiating browser.
const (
	nonceCookieName    = "__oauth_state"
	verifierCookieName = "__oauth_pkce"
)

func (h *Handler) setFlowCookies(c *gin.Context, nonce, verifier string) {
	maxAge := int(h.flowTTL.Seconds())
	h.setFlowCookie(c, nonceCookieName, nonce, maxAge)
	h.setFlowCookie(c, verifierCookieName, verifier, maxAge)
}

// takeFlowCookies reads both flow cookies and clears them. They are single use.
func (h *Handler) takeFlowCookies(c *gin.Context) (nonce, verifier string) {
	nonce, _ = c.Cookie(nonceCookieName)
	verifier, _ = c.Cookie(verifierCookieName)
	h.setFlowCookie(c, nonceCookieName, "", -1)
	h.setFlowCookie(c, verifierCookieName, "", -1)
	return nonce, verifier
}

// SameSite must be Lax: the callback is a top-level navigation from the provider.
func (h *Handler) setFlowCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
