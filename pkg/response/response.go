package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"skillbridge.io/marketplace/pkg/apperror"
	"skillbridge.io/marketplace/pkg/logger"
)

const (
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
	DevModeKey  = "dev_mode"
	LoggerKey   = "logger"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	s, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// Logger returns the request-scoped logger set by the request logging middleware.
func Logger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(LoggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logger.FromContext(c.Request.Context(), nil)
}

// Error writes the standardized error body for err.
func Error(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	body := gin.H{
		"error":   apperror.Code(err),
		"message": apperror.PublicMessage(err),
	}

	// Log internal errors with full detail
	if code >= http.StatusInternalServerError {
		Logger(c).WithFields(logrus.Fields{
			"route":  c.FullPath(),
			"method": c.Request.Method,
		}).WithError(unwrapAll(err)).Error("request failed")

		if c.GetBool(DevModeKey) {
			body["detail"] = unwrapAll(err).Error()
		}
	}

	c.AbortWithStatusJSON(code, body)
}

// ValidationError writes a 400 with the formatted validation message.
func ValidationError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "VALIDATION_FAILED",
		"message": message,
	})
}

func unwrapAll(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err
	}
	return err
}
