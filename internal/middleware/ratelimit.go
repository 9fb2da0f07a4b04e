package middleware

import (
	"fmt"
	"math"

	"github.com/gin-gonic/gin"

	"skillbridge.io/marketplace/internal/metrics"
	"skillbridge.io/marketplace/pkg/ratelimiter"
	"skillbridge.io/marketplace/pkg/response"
)

// RateLimit rejects requests from a client IP once limiter says no. Limiter
// errors let the request through.
func RateLimit(name, message string, limiter ratelimiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			response.Logger(c).WithError(err).WithField("limiter", name).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		if !decision.Allowed {
			metrics.RecordRateLimited(name)
			c.Header("Retry-After", fmt.Sprintf("%d", int(math.Ceil(decision.RetryAfter.Seconds()))))
			response.Error(c, &ratelimiter.RateLimitError{Message: message, RetryAfter: decision.RetryAfter})
			return
		}

		c.Next()
	}
}
