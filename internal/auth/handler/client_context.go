package handler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/auth"
	"identity-broker/internal/client"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/token"
)

// clientContext is the optional clientId/redirectUrl pair a caller sends
// when it wants a token handed back to a registered application.
type clientContext struct {
	ClientID    string
	RedirectURL string
}

func (cc clientContext) present() bool {
	return cc.ClientID != "" || cc.RedirectURL != ""
}

// queryClientContext reads the pair from the URL, falling back to form fields.
func queryClientContext(c *gin.Context) clientContext {
	cc := clientContext{ClientID: c.Query("clientId"), RedirectURL: c.Query("redirectUrl")}
	if cc.present() {
		return cc
	}
	return clientContext{ClientID: c.PostForm("clientId"), RedirectURL: c.PostForm("redirectUrl")}
}

// validateClient returns nil, nil when no client context was given.
// A partial pair is as invalid as a wrong one.
func (h *Handler) validateClient(ctx context.Context, cc clientContext) (*client.Client, error) {
	if !cc.present() {
		return nil, nil
	}

	var (
		cl  *client.Client
		err error
	)
	if cc.ClientID == "" || cc.RedirectURL == "" {
		err = fmt.Errorf("%w: clientId and redirectUrl must be sent together", auth.ErrInvalidRedirect)
	} else {
		cl, err = h.clients.Validate(ctx, cc.ClientID, cc.RedirectURL)
	}
	if err == nil {
		return cl, nil
	}

	reason := "server_error"
	switch {
	case errors.Is(err, auth.ErrUnknownClient):
		reason = "unknown_client"
	case errors.Is(err, auth.ErrInvalidRedirect):
		reason = "invalid_redirect"
	}
	h.metrics.ClientRejected(reason)
	logger.Warn("client context rejected", map[string]any{
		"client_id":     cc.ClientID,
		"redirect_host": redirectHost(cc.RedirectURL),
		"redirect_len":  len(cc.RedirectURL),
		"reason":        reason,
	})
	return nil, err
}

// deliverToken mints a token for cl and appends it to the validated
// redirect URL. The URL is otherwise sent back byte for byte.
func (h *Handler) deliverToken(p *identity.Principal, cl *client.Client, redirectURL string) (tok, location string, err error) {
	tok, err = h.tokens.Issue(token.Subject{ID: p.ID, Username: p.Username, Email: p.Email}, cl.PublicID)
	if err != nil {
		return "", "", err
	}
	h.metrics.TokensIssued.Inc()

	base, fragment, hasFragment := strings.Cut(redirectURL, "#")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}
	location = base + sep + "token=" + url.QueryEscape(tok)
	if hasFragment {
		location += "#" + fragment
	}

	logger.Info("token issued", map[string]any{
		"user_id":       p.ID,
		"client_id":     cl.PublicID,
		"redirect_host": redirectHost(redirectURL),
	})
	return tok, location, nil
}

func redirectHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
