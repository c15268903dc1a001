package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"identity-broker/internal/identity"
	"identity-broker/internal/logger"
	"identity-broker/internal/view"
)

const methodRegister = "register"

func (h *Handler) localRegister(c *gin.Context, req credentialsRequest) (*signInResult, error) {
	cc := req.clientContext()
	cl, err := h.validateClient(c.Request.Context(), cc)
	if err != nil {
		return nil, err
	}

	p, err := h.identities.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	logger.Info("account registered", map[string]any{"user_id": p.ID})

	return h.signIn(c, p, methodRegister, cl, cc)
}

func (h *Handler) registerPage(c *gin.Context) {
	cc := queryClientContext(c)
	h.renderForm(c, http.StatusOK, view.PageRegister, formNotice(c), false,
		credentialsRequest{ClientID: cc.ClientID, RedirectURL: cc.RedirectURL})
}

func (h *Handler) registerWeb(c *gin.Context) {
	req, ok := h.bindForm(c, view.PageRegister)
	if !ok {
		return
	}
	res, err := h.localRegister(c, req)
	if err != nil {
		h.formFailure(c, view.PageRegister, req, err)
		return
	}
	c.Redirect(http.StatusFound, res.location)
}

func (h *Handler) registerAPI(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", identity.ErrInvalidInput, err))
		return
	}
	res, err := h.localRegister(c, req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOK(c, http.StatusCreated, res.payload())
}
