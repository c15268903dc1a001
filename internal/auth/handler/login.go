package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/auth"
	"identity-broker/internal/client"
	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/metrics"
	"identity-broker/internal/middleware"
	"identity-broker/internal/session"
	"identity-broker/internal/view"
)

// credentialsRequest is the body of login and register, as JSON or form.
type credentialsRequest struct {
	Username    string `json:"username"    form:"username"`
	Email       string `json:"email"       form:"email"`
	Password    string `json:"password"    form:"password"`
	ClientID    string `json:"clientId"    form:"clientId"`
	RedirectURL string `json:"redirectUrl" form:"redirectUrl"`
}

func (r credentialsRequest) clientContext() clientContext {
	return clientContext{ClientID: r.ClientID, RedirectURL: r.RedirectURL}
}

// signInResult is where a successful sign-in sends the caller.
type signInResult struct {
	principal *identity.Principal
	token     string
	location  string
}

func (r *signInResult) payload() gin.H {
	data := gin.H{"user": r.principal.Public()}
	if r.token != "" {
		data["token"] = r.token
		data["redirectUrl"] = r.location
	}
	return data
}

// signIn opens a session for p and, when cl is set, mints its token.
func (h *Handler) signIn(c *gin.Context, p *identity.Principal, method string, cl *client.Client, cc clientContext) (*signInResult, error) {
	sess, err := h.sessions.Create(c.Request.Context(), p.ID)
	if err != nil {
		return nil, err
	}
	session.SetCookie(c.Writer, sess.SessionID, sess.AbsoluteExpiresAt, h.cookie)
	h.metrics.SessionsCreated.Inc()
	h.metrics.Login(method, metrics.ResultSuccess)
	logger.Info("login succeeded", map[string]any{"user_id": p.ID, "method": method})

	res := &signInResult{principal: p, location: middleware.LandingPath}
	if cl == nil {
		return res, nil
	}
	res.token, res.location, err = h.deliverToken(p, cl, cc.RedirectURL)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// localLogin checks the client context before the password so nothing is
// authenticated on behalf of an unregistered redirect.
func (h *Handler) localLogin(c *gin.Context, req credentialsRequest) (*signInResult, error) {
	cc := req.clientContext()
	cl, err := h.validateClient(c.Request.Context(), cc)
	if err != nil {
		return nil, err
	}

	p, err := h.identities.FindByCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.metrics.Login(auth.ProviderLocal.String(), metrics.ResultFailure)
			logger.Warn("login failed", map[string]any{"method": auth.ProviderLocal.String(), "ip": c.ClientIP()})
		}
		return nil, err
	}
	return h.signIn(c, p, auth.ProviderLocal.String(), cl, cc)
}

func (h *Handler) loginPage(c *gin.Context) {
	cc := queryClientContext(c)
	h.renderForm(c, http.StatusOK, view.PageLogin, formNotice(c), false,
		credentialsRequest{ClientID: cc.ClientID, RedirectURL: cc.RedirectURL})
}

func (h *Handler) loginWeb(c *gin.Context) {
	req, ok := h.bindForm(c, view.PageLogin)
	if !ok {
		return
	}
	res, err := h.localLogin(c, req)
	if err != nil {
		h.formFailure(c, view.PageLogin, req, err)
		return
	}
	c.Redirect(http.StatusFound, res.location)
}

func (h *Handler) loginAPI(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", identity.ErrInvalidInput, err))
		return
	}
	res, err := h.localLogin(c, req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, http.StatusOK, res.payload())
}

// bindForm binds a posted form. The client context may also come from the
// query string of the form action.
func (h *Handler) bindForm(c *gin.Context, page view.Page) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderForm(c, http.StatusBadRequest, page, middleware.NoticeInvalidInput, true, req)
		return req, false
	}
	if !req.clientContext().present() {
		req.ClientID, req.RedirectURL = c.Query("clientId"), c.Query("redirectUrl")
	}
	return req, true
}

// formFailure re-renders the form for user mistakes and shows the error
// page for anything else.
func (h *Handler) formFailure(c *gin.Context, page view.Page, req credentialsRequest, err error) {
	f := classify(err)
	switch f.code {
	case "invalid_credentials", "already_exists", "weak_password", "invalid_input":
		h.renderForm(c, f.status, page, f.notice, true, req)
	default:
		h.renderFailure(c, err)
	}
}

func (h *Handler) renderForm(c *gin.Context, status int, page view.Page, n middleware.Notice, isErr bool, req credentialsRequest) {
	h.render(c, status, page, view.Form{
		Notice:      n.Text(),
		Error:       isErr,
		Email:       req.Email,
		Username:    req.Username,
		ClientID:    req.ClientID,
		RedirectURL: req.RedirectURL,
		Providers:   h.enabledProviders(),
	})
}

func formNotice(c *gin.Context) middleware.Notice {
	return middleware.ParseNotice(c.Query("notice"))
}
