// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// SetupRoutes wires all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	promotionHandler := handlers.NewPromotionHandler(db, redisClient, cfg)
	checkoutHandler := handlers.NewCheckoutHandler(db, redisClient, cfg)
	orderHandler := handlers.NewOrderHandler(db, cfg)

	// Promo code validation is read-only pricing computation, open to the
	// storefront client
	promotions := rg.Group("/promotions")
	{
		promotions.POST("/validate", promotionHandler.ValidateCode)
	}

	// Checkout works for guests; auth is optional so a signed-in customer's
	// ID can be attached to the resulting order
	checkout := rg.Group("/checkout")
	checkout.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		checkout.POST("/session", checkoutHandler.CreateSession)
		checkout.GET("/session/:id", checkoutHandler.GetSession)
		checkout.POST("/confirm", checkoutHandler.ConfirmOrder)
	}

	// Webhooks authenticate via signature verification, not bearer tokens
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/stripe", checkoutHandler.HandleWebhook)
	}

	orders := rg.Group("/orders")
	{
		// Direct creation for flows without a hosted-payment redirect
		orders.POST("", middleware.OptionalAuthMiddleware(cfg), orderHandler.CreateOrder)

		// Staff-facing order management
		staff := orders.Group("")
		staff.Use(middleware.AuthMiddleware(cfg))
		staff.Use(middleware.StaffMiddleware())
		{
			staff.GET("", orderHandler.GetOrders)
			staff.GET("/:id", orderHandler.GetOrder)
			staff.GET("/number/:orderNumber", orderHandler.GetOrderByNumber)
			staff.PUT("/:id/status", orderHandler.UpdateOrderStatus)
		}
	}
}
