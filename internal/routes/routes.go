package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cesde/internal/handlers"
	"cesde/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	sessions *middleware.SessionManager,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	passwordHandler *handlers.PasswordHandler,
	integrationsHandler *handlers.IntegrationsHandler, // nil without a bot token
) *gin.Engine {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Telegram calls the webhook without a session
	if integrationsHandler != nil {
		r.POST("/integrations/telegram/webhook", integrationsHandler.Webhook)
	}

	s := r.Group("/", sessions.Load())

	// ---- public
	s.POST("/login", authHandler.Login)
	s.POST("/register", userHandler.Register)
	s.GET("/logout", authHandler.Logout)
	s.POST("/logout", authHandler.Logout)
	s.POST("/password/forgot", passwordHandler.Forgot)
	s.POST("/password/reset", passwordHandler.Reset)

	// ---- pending second factor
	tfa := s.Group("/2fa", middleware.RequirePending())
	{
		tfa.GET("", authHandler.ShowVerify)
		tfa.POST("", authHandler.Verify)
		tfa.POST("/resend", authHandler.Resend)
	}

	// ---- signed in
	s.GET("/welcome", middleware.RequireAuth(), userHandler.Me("welcome"))
	s.GET("/dashboard", middleware.RequireAdmin(), userHandler.Me("dashboard"))
	s.GET("/admin", middleware.RequireAdmin(), userHandler.Me("admin"))
	s.GET("/superadmin", middleware.RequireSuperAdmin(), userHandler.Me("superadmin"))

	// ---- user management
	users := s.Group("/api/users", middleware.RequireAdmin())
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", middleware.RequireSuperAdmin(), userHandler.Delete)
	}

	if integrationsHandler != nil {
		s.POST("/integrations/telegram/link", middleware.RequireAuth(), integrationsHandler.RequestTelegramLink)
	}

	return r
}
