// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	config       *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, cfg *config.Config) *OrderHandler {
	repo := order.NewRepository(db)
	return &OrderHandler{
		orderService: order.NewService(repo, cfg),
		config:       cfg,
	}
}

// createOrderRequest is the wire shape for direct order creation, used by
// flows that skip the hosted-payment redirect
type createOrderRequest struct {
	Items             []cartItem           `json:"items"`
	CustomerInfo      *customerInfoPayload `json:"customer_info"`
	CustomerInfoCamel *customerInfoPayload `json:"customerInfo"`
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
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

	createReq := &order.CreateOrderRequest{
		Lines:           toCartLines(req.Items),
		CustomerID:      info.CustomerID,
		CustomerName:    info.Name,
		CustomerEmail:   info.Email,
		CustomerPhone:   info.Phone,
		FulfillmentType: info.OrderType,
		PickupTime:      checkout.ParsePickupTime(info.PickupDate, info.PickupTime),
		DeliveryAddress: info.DeliveryAddress,
		Notes:           info.Notes,
	}

	created, err := h.orderService.CreateOrder(c.Request.Context(), createReq)
	if err != nil {
		var validationErr *order.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": validationErr.Message,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create order",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    created,
	})
}

// GetOrders handles GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	req := &order.ListRequest{
		Page:  1,
		Limit: 20,
	}

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			req.Page = p
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			req.Limit = l
		}
	}
	if status := c.Query("status"); status != "" {
		req.Status = order.Status(status)
		if !req.Status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown order status",
			})
			return
		}
	}

	response, err := h.orderService.ListOrders(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	idParam := c.Param("id")
	orderID, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), uint(orderID))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// GetOrderByNumber handles GET /orders/number/:orderNumber
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	if orderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Order number is required",
		})
		return
	}

	o, err := h.orderService.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// UpdateOrderStatus handles PUT /orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	idParam := c.Param("id")
	orderID, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	var req struct {
		Status order.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	updated, err := h.orderService.UpdateOrderStatus(c.Request.Context(), uint(orderID), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrUnknownStatus):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown order status",
			})
		case errors.Is(err, order.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update order status",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    updated.Summarize(),
	})
}
