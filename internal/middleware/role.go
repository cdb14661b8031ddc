package middleware

import (
	"net/http"

	"familytree/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireAuth is the decision point behind the JWTAuth annotator: no
// principal means 401, with the filter's failure reason echoed when one was
// recorded.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetInt64(CtxUserID) == 0 {
			code := c.GetString(CtxAuthError)
			if code == "" {
				code = CodeAuthRequired
			}
			response.Error(c, http.StatusUnauthorized, code, "Authentication required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole ensures that the authenticated user has the specified role.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			response.Error(c, http.StatusUnauthorized, CodeAuthRequired, "Role not found in token")
			c.Abort()
			return
		}

		if role != requiredRole {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole("admin")
}
