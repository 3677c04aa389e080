// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("is_staff", claims.IsStaff)

		c.Next()
	}
}

// StaffMiddleware ensures the authenticated user has staff privileges
func StaffMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		isStaff, exists := c.Get("is_staff")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		if !isStaff.(bool) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Staff access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalAuthMiddleware provides optional authentication
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("is_staff", claims.IsStaff)

		c.Next()
	}
}

// GetUserIDFromContext extracts the authenticated user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}
