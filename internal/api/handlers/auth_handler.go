package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vartik/vartikgpt/internal/providers/identity"
	"github.com/vartik/vartikgpt/internal/services"
	"github.com/vartik/vartikgpt/internal/utils"
)

type AuthHandler struct {
	svc services.BootstrapService
}

func NewAuthHandler(svc services.BootstrapService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type LoginResponse struct {
	LoginURL string `json:"login_url"`
	State    string `json:"state"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	c.JSON(http.StatusOK, LoginResponse{LoginURL: h.svc.LoginURL(state), State: state})
}

// Callback finishes the interactive sign-in and runs the bootstrap.
func (h *AuthHandler) Callback(c *gin.Context) {
	res, err := h.svc.SignIn(c.Request.Context(), identity.Callback{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Bootstrap(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	res, err := h.svc.Resume(c.Request.Context(), owner)
	if err != nil {
		if res != nil && res.InteractionRequired {
			c.JSON(utils.HTTPStatus(err), gin.H{
				"code":      utils.CodeOf(err),
				"message":   utils.SafeMessage(err),
				"login_url": res.LoginURL,
			})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	url, err := h.svc.SignOut(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logout_url": url})
}
