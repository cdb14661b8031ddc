package middleware

import (
	"net/http"
	"time"

	"familytree/internal/pkg/ratelimit"
	"familytree/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateLimit throttles an endpoint per client IP. Limits are per process;
// see the Limiter docs for the clustering caveat.
func RateLimit(limiter *ratelimit.Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.Request.URL.Path
		if !limiter.Allow(key, limit, window) {
			response.Error(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
