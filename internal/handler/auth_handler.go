package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusforms/registry-api/internal/models"
	appErrors "github.com/campusforms/registry-api/pkg/errors"
	"github.com/campusforms/registry-api/pkg/response"
)

type adminAuthenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
}

// AuthHandler exposes the admin login endpoint.
type AuthHandler struct {
	auth adminAuthenticator
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth adminAuthenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Admin login
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if result.Warning != "" {
		meta = map[string]interface{}{"warning": result.Warning}
	}
	response.JSON(c, http.StatusOK, result, nil, meta)
}
