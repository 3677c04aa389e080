// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// ValidationError indicates a request was rejected for a business reason the
// caller must fix before retrying
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrUnknownStatus indicates a status transition target outside the known set
var ErrUnknownStatus = errors.New("unknown order status")

// Service handles order business logic
type Service struct {
	repo   *Repository
	config *config.Config
}

// NewService creates a new order service
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{
		repo:   repo,
		config: cfg,
	}
}

// CreateOrderRequest represents direct order creation data, used for flows
// that skip the hosted-payment redirect (manual/offline orders)
type CreateOrderRequest struct {
	Lines           []cart.Line
	CustomerID      *uint
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	FulfillmentType FulfillmentType
	PickupTime      *time.Time
	DeliveryAddress *DeliveryAddress
	Notes           string
}

// CreateOrder creates an order directly, without a payment gateway session.
// The order starts in pending status; subtotal, tax and total are computed
// from the supplied cart lines.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, &ValidationError{Message: "cart is empty"}
	}
	if strings.TrimSpace(req.CustomerEmail) == "" || strings.TrimSpace(req.CustomerName) == "" {
		return nil, &ValidationError{Message: "customer name and email are required"}
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid quantity for %q", line.Name)}
		}
		if line.UnitPrice.IsNegative() {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid price for %q", line.Name)}
		}
	}

	fulfillment := req.FulfillmentType
	if fulfillment == "" {
		fulfillment = FulfillmentPickup
	}
	if fulfillment != FulfillmentPickup && fulfillment != FulfillmentDelivery {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown fulfillment type %q", fulfillment)}
	}

	subtotal := cart.Subtotal(req.Lines)
	tax := subtotal.Mul(decimal.NewFromFloat(s.config.Checkout.TaxRate)).Round(2)
	total := subtotal.Add(tax)

	o := &Order{
		OrderNumber:     GenerateOrderNumber(),
		Status:          StatusPending,
		Subtotal:        subtotal,
		Tax:             tax,
		Total:           total,
		FulfillmentType: fulfillment,
		PickupTime:      req.PickupTime,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		Notes:           req.Notes,
		Lines:           LinesFromCart(req.Lines),
	}
	if req.DeliveryAddress != nil {
		o.DeliveryAddress = *req.DeliveryAddress
	}

	if err := s.repo.CreateWithLines(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Order number collision; vanishingly rare, safe to retry
			return nil, fmt.Errorf("order number conflict, please retry: %w", err)
		}
		return nil, err
	}

	return o, nil
}

// ListOrders retrieves orders with filtering and pagination
func (s *Service) ListOrders(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Status != "" && !req.Status.IsValid() {
		return nil, ErrUnknownStatus
	}
	return s.repo.List(ctx, req)
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// GetOrderByNumber retrieves a single order by its order number
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.repo.GetByNumber(ctx, orderNumber)
}

// UpdateOrderStatus sets an order's status to any of the known values and
// returns the updated order. Transitions are deliberately not restricted to
// the forward sequence: staff tooling relies on jumping states, e.g. a
// force-cancel from any non-terminal state.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uint, status Status) (*Order, error) {
	if !status.IsValid() {
		return nil, ErrUnknownStatus
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// LinesFromCart converts ephemeral cart lines into persistable order lines,
// snapshotting name and price
func LinesFromCart(lines []cart.Line) []OrderLine {
	orderLines := make([]OrderLine, len(lines))
	for i, line := range lines {
		orderLines[i] = OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.Round(2),
			LineTotal:   line.Total().Round(2),
		}
	}
	return orderLines
}

// GenerateOrderNumber builds a human-readable order number from a fixed
// prefix, a base-36 timestamp and a short random suffix. The order_number
// column's uniqueness constraint is the backstop for the negligible
// collision probability.
func GenerateOrderNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", ts, suffix)
}
