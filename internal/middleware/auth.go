package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telehealth-app-server/internal/apperrors"
	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

const callerKey = "caller"

// AuthMiddleware creates a middleware for JWT authentication. The resolved
// identity is stored on the request context as a guard.Caller.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			utils.AbortWithError(c, log, err)
			return
		}

		caller, err := Authenticate(tokenString, cfg)
		if err != nil {
			utils.AbortWithError(c, log, err)
			return
		}

		// Set user information in context for downstream handlers
		SetCaller(c, caller)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.Authentication("Authorization header required")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperrors.Authentication("Invalid authorization header format")
	}
	return parts[1], nil
}

// Authenticate resolves an access token to the caller identity.
func Authenticate(tokenString string, cfg *config.Config) (guard.Caller, error) {
	claims, err := utils.ValidateToken(tokenString, cfg.JWTSecret)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return guard.Caller{}, apperrors.Authentication("Token has expired")
		}
		return guard.Caller{}, apperrors.Authentication("Invalid token")
	}
	return guard.Caller{UserID: claims.UserID, Role: claims.Role, Name: claims.Name}, nil
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(log *zap.Logger, allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			utils.AbortWithError(c, log, apperrors.Authentication("Authentication required"))
			return
		}

		for _, allowedRole := range allowedRoles {
			if caller.Role == allowedRole {
				c.Next()
				return
			}
		}

		utils.AbortWithError(c, log, apperrors.Authorization("You do not have permission to access this resource."))
	}
}

func SetCaller(c *gin.Context, caller guard.Caller) {
	c.Set(callerKey, caller)
	c.Set("userID", caller.UserID)
	c.Set("userRole", caller.Role)
}

// CallerFromContext returns the identity set by AuthMiddleware.
func CallerFromContext(c *gin.Context) (guard.Caller, bool) {
	v, exists := c.Get(callerKey)
	if !exists {
		return guard.Caller{}, false
	}
	caller, ok := v.(guard.Caller)
	return caller, ok
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// GetUserRoleFromContext returns the role set by AuthMiddleware.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	role, exists := c.Get("userRole")
	if !exists {
		return "", false
	}
	r, ok := role.(models.Role)
	return r, ok
}
