// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/promotion"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles hosted-checkout session and reconciliation
// endpoints, including the gateway webhook.
type CheckoutHandler struct {
	checkoutService *checkout.Service
	gateway         payment.Gateway
	config          *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CheckoutHandler {
	gateway := payment.NewStripeService(cfg)
	orderRepo := order.NewRepository(db)
	promoRepo := promotion.NewGormRepository(db, redisClient.GetClient())
	promoService := promotion.NewService(promoRepo)

	return &CheckoutHandler{
		checkoutService: checkout.NewService(gateway, orderRepo, promoService, cfg),
		gateway:         gateway,
		config:          cfg,
	}
}

// createSessionRequest tolerates both customer info spellings
type createSessionRequest struct {
	Items             []cartItem           `json:"items"`
	CustomerInfo      *customerInfoPayload `json:"customer_info"`
	CustomerInfoCamel *customerInfoPayload `json:"customerInfo"`
}

// CreateSession handles POST /checkout/session
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	payload := req.CustomerInfo
	if payload == nil {
		payload = req.CustomerInfoCamel
	}
	info := payload.normalize()

	result, err := h.checkoutService.CreateSession(c.Request.Context(), toCartLines(req.Items), info)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        result.URL,
		"session_id": result.SessionID,
	})
}

// GetSession handles GET /checkout/session/:id
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Session ID is required",
		})
		return
	}

	session, err := h.gateway.GetCheckoutSession(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             session.ID,
		"status":         session.Status,
		"payment_status": session.PaymentStatus,
		"customer_email": session.CustomerEmail,
		"amount_total":   session.AmountTotal,
		"metadata":       session.Metadata,
		"line_items":     session.LineItems,
	})
}

// confirmRequest tolerates both spellings for the session and customer ids
type confirmRequest struct {
	SessionID       string `json:"session_id"`
	SessionIDCamel  string `json:"sessionId"`
	CustomerID      *uint  `json:"customer_id"`
	CustomerIDCamel *uint  `json:"customerId"`
}

// ConfirmOrder handles POST /checkout/confirm. Repeat calls with the same
// session id return the same order.
func (h *CheckoutHandler) ConfirmOrder(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	sessionID := coalesce(req.SessionID, req.SessionIDCamel)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Session ID is required",
		})
		return
	}

	customerID := req.CustomerID
	if customerID == nil {
		customerID = req.CustomerIDCamel
	}
	if customerID == nil {
		if userID, ok := middleware.GetUserIDFromContext(c); ok {
			customerID = &userID
		}
	}

	o, err := h.checkoutService.ConfirmOrder(c.Request.Context(), sessionID, customerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": o.Summarize(),
	})
}

// HandleWebhook handles POST /webhooks/stripe. The raw body is needed for
// signature verification, so no JSON binding happens before the check.
func (h *CheckoutHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	event, err := h.gateway.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.checkoutService.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process webhook event",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
	})
}

// respondError maps service errors onto HTTP statuses. Internal detail stays
// out of responses except in development.
func (h *CheckoutHandler) respondError(c *gin.Context, err error) {
	var validationErr *order.ValidationError
	var gatewayErr *payment.GatewayError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
		})
	case errors.Is(err, checkout.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "payment not completed",
		})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Payment provider error",
		})
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	default:
		body := gin.H{"error": "Internal server error"}
		if h.config.IsDevelopment() {
			body["details"] = err.Error()
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
