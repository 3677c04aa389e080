// internal/interfaces/http/handlers/promotion.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/promotion"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
)

// PromotionHandler handles promo code validation endpoints
type PromotionHandler struct {
	promoService *promotion.Service
	config       *config.Config
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *PromotionHandler {
	repo := promotion.NewGormRepository(db, redisClient.GetClient())
	return &PromotionHandler{
		promoService: promotion.NewService(repo),
		config:       cfg,
	}
}

// validateRequest is the wire shape for promo validation. Items may carry the
// same dual field spellings the checkout endpoints accept.
type validateRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Items    []cartItem      `json:"items"`
}

// ValidateCode handles POST /promotions/validate. Business rejections
// (unknown code, outside window, below minimum purchase) come back as 200
// with valid:false; only transport and persistence problems are errors.
func (h *PromotionHandler) ValidateCode(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	lines := toCartLines(req.Items)
	subtotal := req.Subtotal
	if subtotal.IsZero() && len(lines) > 0 {
		subtotal = cart.Subtotal(lines)
	}

	result, err := h.promoService.ValidateCode(c.Request.Context(), req.Code, subtotal, lines)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to validate promo code",
		})
		return
	}

	if !result.Valid {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"special":  result.Special,
		"discount": result.Discount,
	})
}
