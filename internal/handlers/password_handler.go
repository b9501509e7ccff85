package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cesde/internal/models"
	"cesde/internal/services"
)

type PasswordHandler struct {
	service *services.PasswordResetService
	logger  *zap.Logger
}

func NewPasswordHandler(service *services.PasswordResetService, logger *zap.Logger) *PasswordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordHandler{service: service, logger: logger.Named("password")}
}

// @Summary      Request a password reset code
// @Tags         Auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        request  body      models.ForgotPasswordRequest  true  "Identity"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Router       /password/forgot [post]
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.RequestReset(c.Request.Context(), req, c.ClientIP()); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a code has been sent."})
}

// @Summary      Set a new password with a reset code
// @Tags         Auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        request  body      models.ResetPasswordRequest  true  "Code and new password"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Router       /password/reset [post]
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated.", "redirect": "/login"})
}
