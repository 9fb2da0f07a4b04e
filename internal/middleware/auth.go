package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/pkg/apperror"
	"skillbridge.io/marketplace/pkg/response"
	"skillbridge.io/marketplace/pkg/token"
)

type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type AuthMiddleware struct {
	users  UserFinder
	tokens *token.Manager
}

func NewAuthMiddleware(users UserFinder, tokens *token.Manager) *AuthMiddleware {
	return &AuthMiddleware{
		users:  users,
		tokens: tokens,
	}
}

// RequireAuth resolves the bearer token to a live user and stores its id and
// role on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Browsers cannot set headers on websocket upgrades.
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			response.Error(c, apperror.Unauthorized("access token required"))
			return
		}

		claims, err := m.tokens.Parse(tokenString)
		if err != nil {
			response.Error(c, apperror.Forbidden("invalid or expired token"))
			return
		}

		userID := uuid.MustParse(claims.UserID)
		user, err := m.users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(c, apperror.Unauthorized("user not found"))
				return
			}
			response.Error(c, apperror.Dependency("auth.find_user", err))
			return
		}

		c.Set(response.UserIDKey, user.ID.String())
		c.Set(response.UserRoleKey, string(user.Role))
		c.Set("user", user)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := entity.Role(c.GetString(response.UserRoleKey))
		if current == "" {
			response.Error(c, apperror.Unauthorized("user not authenticated"))
			return
		}

		for _, r := range roles {
			if r == current {
				c.Next()
				return
			}
		}

		response.Error(c, apperror.Forbidden("insufficient permissions"))
	}
}
