package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/auth"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/middleware"
	"identity-broker/internal/view"
)

const genericClientError = "cannot complete sign-in"

// failure is how one error surfaces to either response style.
type failure struct {
	status int
	code   string
	notice middleware.Notice
}

func classify(err error) failure {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return failure{http.StatusUnauthorized, "invalid_credentials", middleware.NoticeInvalidCredentials}
	case errors.Is(err, identity.ErrLinkRequired):
		return failure{http.StatusConflict, "link_required", middleware.NoticeLinkRequired}
	case errors.Is(err, auth.ErrAlreadyExists):
		return failure{http.StatusConflict, "already_exists", middleware.NoticeAlreadyExists}
	case errors.Is(err, identity.ErrWeakPassword):
		return failure{http.StatusBadRequest, "weak_password", middleware.NoticeWeakPassword}
	case errors.Is(err, identity.ErrInvalidInput):
		return failure{http.StatusBadRequest, "invalid_input", middleware.NoticeInvalidInput}
	case errors.Is(err, auth.ErrUnknownClient), errors.Is(err, auth.ErrInvalidRedirect):
		return failure{http.StatusBadRequest, "client_invalid", middleware.NoticeClientInvalid}
	case errors.Is(err, auth.ErrProviderNotConfigured):
		return failure{http.StatusServiceUnavailable, "provider_not_configured", middleware.NoticeProviderUnavailable}
	case errors.Is(err, auth.ErrUnknownProvider):
		return failure{http.StatusNotFound, "unknown_provider", middleware.NoticeProviderUnavailable}
	case errors.Is(err, auth.ErrAuthFailed):
		return failure{http.StatusUnauthorized, "auth_failed", middleware.NoticeAuthFailed}
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrSessionExpired):
		return failure{http.StatusUnauthorized, "unauthenticated", middleware.NoticeLoginRequired}
	default:
		return failure{http.StatusInternalServerError, "server_error", middleware.NoticeServerError}
	}
}

// writeError renders err as the JSON error envelope.
func writeError(c *gin.Context, err error) {
	f := classify(err)
	if f.status == http.StatusInternalServerError {
		logger.Error("request failed", map[string]any{"path": c.FullPath(), "error": err})
	}
	middleware.WriteJSONError(c.Writer, f.status, f.code, f.notice.Text())
	c.Abort()
}

func writeOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"status": "ok",
		"data":   data,
	})
}

func (h *Handler) render(c *gin.Context, status int, page view.Page, data any) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := h.views.Render(c.Writer, page, data); err != nil {
		logger.Error("render failed", map[string]any{"page": string(page), "error": err})
	}
}

// renderFailure shows the error page for errors that are not form problems.
func (h *Handler) renderFailure(c *gin.Context, err error) {
	f := classify(err)
	if f.status == http.StatusInternalServerError {
		logger.Error("request failed", map[string]any{"path": c.FullPath(), "error": err})
	}

	title := "Sign-in unavailable"
	if f.code == "client_invalid" {
		title = genericClientError
	}
	h.render(c, f.status, view.PageError, view.ErrorPage{Title: title, Message: f.notice.Text()})
}
