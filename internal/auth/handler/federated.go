package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/auth"
	"identity-broker/internal/federation"
	"identity-broker/internal/logger"
	"identity-broker/internal/metrics"
	"identity-broker/internal/middleware"
)

func federatedKind(c *gin.Context) (auth.Provider, error) {
	kind, err := auth.ParseProvider(c.Param("provider"))
	if err != nil {
		return "", err
	}
	if !kind.Federated() {
		return "", fmt.Errorf("%w: %s", auth.ErrUnknownProvider, kind)
	}
	return kind, nil
}

// beginFederated validates the client context up front and sets the
// browser-bound flow cookies for the callback.
func (h *Handler) beginFederated(c *gin.Context) (*federation.AuthorizationRequest, error) {
	kind, err := federatedKind(c)
	if err != nil {
		return nil, err
	}

	cc := queryClientContext(c)
	if _, err := h.validateClient(c.Request.Context(), cc); err != nil {
		return nil, err
	}

	req, err := h.federation.Begin(kind, auth.PendingState{
		TargetClientID:    cc.ClientID,
		TargetRedirectURL: cc.RedirectURL,
	})
	if err != nil {
		if errors.Is(err, auth.ErrProviderNotConfigured) {
			logger.Warn("federated login for unconfigured provider", map[string]any{"provider": kind.String()})
		}
		return nil, err
	}

	h.setFlowCookies(c, req.Nonce, req.CodeVerifier)
	return req, nil
}

func (h *Handler) federatedStartWeb(c *gin.Context) {
	req, err := h.beginFederated(c)
	if err != nil {
		h.renderFailure(c, err)
		return
	}
	c.Redirect(http.StatusFound, req.URL)
}

func (h *Handler) federatedStartAPI(c *gin.Context) {
	req, err := h.beginFederated(c)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, http.StatusOK, gin.H{
		"provider":         req.Provider.String(),
		"authorizationUrl": req.URL,
	})
}

// federatedCallback finishes leg two. The user is signed in whenever the
// provider vouches for them. A broken or foreign state only costs the
// client exchange.
func (h *Handler) federatedCallback(c *gin.Context) {
	kind, err := federatedKind(c)
	if err != nil {
		h.renderFailure(c, err)
		return
	}
	nonce, verifier := h.takeFlowCookies(c)

	if reason := c.Query("error"); reason != "" {
		h.metrics.Login(kind.String(), metrics.ResultFailure)
		logger.Warn("provider returned an error", map[string]any{"provider": kind.String(), "reason": reason})
		c.Redirect(http.StatusFound, middleware.WithNotice(middleware.LoginPath, middleware.NoticeAuthFailed))
		return
	}

	profile, err := h.federation.Exchange(c.Request.Context(), kind, c.Query("code"), verifier)
	if err != nil {
		h.federatedFailure(c, kind, err)
		return
	}

	p, pending, err := h.federation.Complete(c.Request.Context(), kind, profile, c.Query("state"), nonce)
	if p == nil {
		h.federatedFailure(c, kind, err)
		return
	}

	res, signErr := h.signIn(c, p, kind.String(), nil, clientContext{})
	if signErr != nil {
		h.renderFailure(c, signErr)
		return
	}

	if err != nil {
		c.Redirect(http.StatusFound, middleware.WithNotice(middleware.LandingPath, middleware.NoticeStateInvalid))
		return
	}
	if !pending.HasClient() {
		c.Redirect(http.StatusFound, res.location)
		return
	}

	cc := clientContext{ClientID: pending.TargetClientID, RedirectURL: pending.TargetRedirectURL}
	cl, err := h.validateClient(c.Request.Context(), cc)
	if err != nil {
		if classify(err).code == "client_invalid" {
			c.Redirect(http.StatusFound, middleware.WithNotice(middleware.LandingPath, middleware.NoticeClientInvalid))
			return
		}
		h.renderFailure(c, err)
		return
	}

	_, location, err := h.deliverToken(p, cl, cc.RedirectURL)
	if err != nil {
		h.renderFailure(c, err)
		return
	}
	c.Redirect(http.StatusFound, location)
}

func (h *Handler) federatedFailure(c *gin.Context, kind auth.Provider, err error) {
	h.metrics.Login(kind.String(), metrics.ResultFailure)

	f := classify(err)
	switch f.code {
	case "auth_failed", "link_required":
		logger.Warn("federated login failed", map[string]any{"provider": kind.String(), "error": err})
		c.Redirect(http.StatusFound, middleware.WithNotice(middleware.LoginPath, f.notice))
	default:
		h.renderFailure(c, err)
	}
}
