package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cesde/internal/authz"
	"cesde/internal/middleware"
	"cesde/internal/models"
	"cesde/internal/services"
	"cesde/internal/session"
	"cesde/internal/utils"
)

type AuthHandler struct {
	flow     *services.LoginFlow
	sessions *middleware.SessionManager
	logger   *zap.Logger
}

func NewAuthHandler(flow *services.LoginFlow, sessions *middleware.SessionManager, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{flow: flow, sessions: sessions, logger: logger.Named("auth")}
}

// @Summary      Sign in, first factor
// @Description  Checks the throttle, the reCAPTCHA token and the password, then sends a one-time code
// @Tags         Auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Failure      429    {object}  ErrorResponse
// @Failure      502    {object}  ErrorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	identity, err := h.flow.Login(c.Request.Context(), c.ClientIP(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	pending := session.Pending{Identification: identity.Identification, Email: identity.Email}
	if err := h.sessions.Save(c, pending); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   string(session.StagePending),
		"email":    utils.MaskEmail(identity.Email),
		"redirect": "/2fa",
	})
}

// @Summary      Second-factor status
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Router       /2fa [get]
func (h *AuthHandler) ShowVerify(c *gin.Context) {
	pending, _ := middleware.CurrentPending(c)
	c.JSON(http.StatusOK, gin.H{
		"status": string(session.StagePending),
		"email":  utils.MaskEmail(pending.Email),
	})
}

// @Summary      Sign in, second factor
// @Tags         Auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        code  body      models.VerifyOTPRequest  true  "One-time code"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /2fa [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	pending, _ := middleware.CurrentPending(c)

	var req models.VerifyOTPRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Enter the code.", Code: "invalid_request", Field: "code"})
		return
	}

	user, err := h.flow.VerifySecondFactor(c.Request.Context(), c.ClientIP(), pending.Identification, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.sessions.Save(c, session.Authenticated{User: user}); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   string(session.StageAuthenticated),
		"user":     user,
		"redirect": landingPage(user.Role),
	})
}

// @Summary      Resend the one-time code
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Failure      429  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Router       /2fa/resend [post]
func (h *AuthHandler) Resend(c *gin.Context) {
	pending, _ := middleware.CurrentPending(c)

	if _, err := h.flow.ResendCode(c.Request.Context(), pending.Identification); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "A new code has been sent.",
		"email":   utils.MaskEmail(pending.Email),
	})
}

// @Summary      Sign out
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	_ = h.sessions.Save(c, session.Anonymous{})
	c.JSON(http.StatusOK, gin.H{"status": string(session.StageAnonymous), "redirect": "/login"})
}

func landingPage(role authz.Role) string {
	switch role {
	case authz.RoleSuperAdmin:
		return "/superadmin"
	case authz.RoleAdmin:
		return "/dashboard"
	}
	return "/welcome"
}
