// internal/pkg/auth/jwt.go
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/your-org/storefront-backend/internal/config"
)

// Claims represents the JWT claims issued by the auth service
type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// JWTManager validates tokens issued by the external auth service. Token
// issuance lives there; this service only verifies the shared-secret
// signature and reads the claims.
type JWTManager struct {
	config *config.Config
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		config: cfg,
	}
}

// ValidateToken validates and parses a JWT token
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.config.JWT.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// ExtractTokenFromHeader extracts JWT token from Authorization header
func ExtractTokenFromHeader(authHeader string) string {
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}
