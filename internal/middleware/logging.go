package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"skillbridge.io/marketplace/pkg/logger"
	"skillbridge.io/marketplace/pkg/response"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger attaches a request-scoped entry to the gin and request
// contexts and writes one line per request.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		entry := log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"client_ip":  c.ClientIP(),
		})
		c.Set(response.LoggerKey, entry)
		c.Request = c.Request.WithContext(logger.WithEntry(c.Request.Context(), entry))

		c.Next()

		fields := logrus.Fields{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if userID := c.GetString(response.UserIDKey); userID != "" {
			fields["user_id"] = userID
		}

		line := entry.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			line.Error("request completed")
		case status >= 400:
			line.Warn("request completed")
		default:
			line.Info("request completed")
		}
	}
}

// DevMode marks every request so error responses may include internal detail.
func DevMode(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(response.DevModeKey, enabled)
		c.Next()
	}
}
