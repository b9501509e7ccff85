package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cesde/internal/authz"
)

func abortUnauthenticated(c *gin.Context, code, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    msg,
		"code":     code,
		"redirect": "/login",
	})
}

// RequirePending lets through only clients waiting for their second factor.
func RequirePending() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPending(c); !ok {
			abortUnauthenticated(c, "not_pending", "no login pending verification")
			return
		}
		c.Next()
	}
}

func RequireAuth() gin.HandlerFunc {
	return RequireRole(func(authz.Role) bool { return true })
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(authz.IsElevated)
}

func RequireSuperAdmin() gin.HandlerFunc {
	return RequireRole(authz.IsSuperAdmin)
}

// RequireRole needs an authenticated principal whose role satisfies allowed.
func RequireRole(allowed func(authz.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortUnauthenticated(c, "unauthenticated", "authentication required")
			return
		}
		if !allowed(user.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
