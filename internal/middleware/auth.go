package middleware

import (
	"errors"
	"strings"

	jwtsvc "familytree/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Cookie carrying the access token. The Authorization header stays as a
// fallback for older API clients.
const AccessTokenCookie = "accessToken"

// Context keys populated on successful verification.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxName   = "name"
	CtxRole   = "role"

	// CtxAuthError carries the machine-readable failure reason when a token
	// was presented but did not verify. RequireAuth echoes it in the 401.
	CtxAuthError = "auth_error"
)

// Auth failure codes.
const (
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeTokenInvalid   = "TOKEN_INVALID"
	CodeTokenMalformed = "TOKEN_MALFORMED"
	CodeAuthRequired   = "AUTH_REQUIRED"
)

// Paths the filter skips entirely; token presence is irrelevant here.
var (
	bypassExact = map[string]struct{}{
		"/":                 {},
		"/health":           {},
		"/api/auth/signup":  {},
		"/api/auth/login":   {},
		"/api/auth/logout":  {},
		"/api/auth/refresh": {},
	}
	bypassPrefixes = []string{"/static/", "/swagger/"}
)

// JWTAuth extracts and verifies the access token, installing the principal
// into the request context on success. It is a pure annotator: on any
// failure it tags the request with CtxAuthError and continues the chain.
// Converting "no principal" into a 401/403 is RequireAuth/RequireRole's job.
func JWTAuth(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bypassed(c.Request.URL.Path) {
			c.Next()
			return
		}

		// A principal installed earlier in the chain is left alone.
		if c.GetInt64(CtxUserID) != 0 {
			c.Next()
			return
		}

		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.Next()
			return
		}

		claims, err := jwt.Verify(tokenStr)
		if err != nil {
			clearPrincipal(c)
			c.Set(CtxAuthError, authErrorCode(err))
			c.Next()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxName, claims.Name)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// extractToken checks the HttpOnly cookie first (primary transport), then
// the bearer header.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		if v := strings.TrimSpace(cookie); v != "" {
			return v
		}
	}

	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clearPrincipal(c *gin.Context) {
	c.Set(CtxUserID, int64(0))
	c.Set(CtxEmail, "")
	c.Set(CtxName, "")
	c.Set(CtxRole, "")
}

func authErrorCode(err error) string {
	switch {
	case errors.Is(err, jwtsvc.ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, jwtsvc.ErrTokenMalformed):
		return CodeTokenMalformed
	default:
		return CodeTokenInvalid
	}
}

func bypassed(path string) bool {
	if _, ok := bypassExact[path]; ok {
		return true
	}
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
