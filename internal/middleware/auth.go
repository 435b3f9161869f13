package middleware

import (
	"errors"
	"net/http"
	"strings"

	"reggenie/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware.
const (
	RoleKey = "role"
	UserKey = "user"
)

// TokenParser validates session tokens.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(parser TokenParser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			c.Abort()
			return
		}

		claims, err := parser.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				c.Abort()
				return
			}
			logger.Debug("Invalid JWT token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(RoleKey, claims.Role)
		c.Set(UserKey, userName(claims.Role))

		c.Next()
	}
}

// RequireAdmin rejects non-admin sessions. Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != auth.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// User returns the display name of the caller for audit entries.
func User(c *gin.Context) string {
	if u := c.GetString(UserKey); u != "" {
		return u
	}
	return "Guest User"
}

func userName(role string) string {
	if role == auth.RoleAdmin {
		return "Admin User"
	}
	return "Guest User"
}
