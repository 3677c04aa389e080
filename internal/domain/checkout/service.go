// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
)

// ErrPaymentNotCompleted indicates a confirmation attempt for a session the
// gateway does not report as paid
var ErrPaymentNotCompleted = errors.New("payment not completed")

// CustomerInfo is the canonical customer and fulfillment shape the engine
// works with. Clients send both snake_case and camelCase spellings; handlers
// normalize them into this struct before any business logic runs.
type CustomerInfo struct {
	OrderType       order.FulfillmentType
	Name            string
	Email           string
	Phone           string
	CustomerID      *uint
	PickupDate      string // 2006-01-02
	PickupTime      string // 15:04
	DeliveryAddress *order.DeliveryAddress
	Notes           string
	PromoCode       string
}

// OrderStore is the slice of order persistence the orchestrator needs
type OrderStore interface {
	CreateWithLines(ctx context.Context, o *order.Order) error
	GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error)
}

// PromoRedeemer reserves a use of a promo code on redemption
type PromoRedeemer interface {
	RedeemByCode(ctx context.Context, code string) error
}

// SessionResult is returned after opening a hosted checkout session
type SessionResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// Service orchestrates the checkout flow: it opens payment sessions with the
// external gateway and later reconciles completed sessions into durable,
// de-duplicated orders.
type Service struct {
	gateway payment.Gateway
	orders  OrderStore
	promos  PromoRedeemer
	config  *config.Config
	logger  *logrus.Entry
}

// NewService creates a new checkout service
func NewService(gateway payment.Gateway, orders OrderStore, promos PromoRedeemer, cfg *config.Config) *Service {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}

	return &Service{
		gateway: gateway,
		orders:  orders,
		promos:  promos,
		config:  cfg,
		logger:  logger.WithField("component", "checkout"),
	}
}

// CreateSession opens a hosted checkout session for the given cart. Nothing
// is persisted locally; until confirmation the session exists only in the
// gateway.
func (s *Service) CreateSession(ctx context.Context, lines []cart.Line, info *CustomerInfo) (*SessionResult, error) {
	if len(lines) == 0 {
		return nil, &order.ValidationError{Message: "cart is empty"}
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &order.ValidationError{Message: fmt.Sprintf("invalid quantity for %q", line.Name)}
		}
	}
	if info.OrderType == "" {
		info.OrderType = order.FulfillmentPickup
	}

	items := make([]payment.SessionLineItem, 0, len(lines)+1)
	for _, line := range lines {
		items = append(items, payment.SessionLineItem{
			Name:       line.Name,
			UnitAmount: toMinorUnits(line.UnitPrice),
			Quantity:   line.Quantity,
		})
	}

	if info.OrderType == order.FulfillmentDelivery && s.config.Checkout.DeliveryFee > 0 {
		fee := decimal.NewFromFloat(s.config.Checkout.DeliveryFee)
		items = append(items, payment.SessionLineItem{
			Name:       "Delivery Fee",
			UnitAmount: toMinorUnits(fee),
			Quantity:   1,
		})
	}

	metadata, err := PackMetadata(info, lines)
	if err != nil {
		return nil, err
	}

	origin := NormalizeOrigin(s.config.Checkout.FrontendURL)
	session, err := s.gateway.CreateCheckoutSession(ctx, &payment.CreateSessionRequest{
		LineItems:     items,
		CustomerEmail: info.Email,
		Currency:      s.config.Checkout.Currency,
		Metadata:      metadata,
		SuccessURL:    origin + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/checkout/cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	return &SessionResult{
		URL:       session.URL,
		SessionID: session.ID,
	}, nil
}

// ConfirmOrder reconciles a paid checkout session into a durable order. It
// is idempotent on the session id: repeat calls, and races between a client
// confirmation and the webhook, always resolve to the single existing order.
func (s *Service) ConfirmOrder(ctx context.Context, sessionID string, customerID *uint) (*order.Order, error) {
	if sessionID == "" {
		return nil, &order.ValidationError{Message: "session id is required"}
	}

	// Idempotency gate: a previous confirmation wins
	existing, err := s.orders.GetBySessionID(ctx, sessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, order.ErrNotFound) {
		return nil, err
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment session: %w", err)
	}

	if !session.IsPaid() {
		return nil, ErrPaymentNotCompleted
	}

	o, err := s.buildOrder(session, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.CreateWithLines(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicate) {
			// A concurrent confirmation or the webhook got there first; the
			// uniqueness constraint on the session id is the backstop
			if existing, fetchErr := s.orders.GetBySessionID(ctx, sessionID); fetchErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	// Redemption is secondary to the order itself: the payment already
	// happened, so a failure here is logged and swallowed
	if code := session.Metadata[metaPromoCode]; code != "" && s.promos != nil {
		if err := s.promos.RedeemByCode(ctx, code); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"order_id":   o.ID,
				"promo_code": code,
			}).Warn("failed to reserve promo code use after confirmation")
		}
	}

	return o, nil
}

// HandleWebhookEvent reacts to a verified gateway notification. Completed
// sessions reconcile exactly as a synchronous confirmation would; unknown
// event types are accepted and ignored.
func (s *Service) HandleWebhookEvent(ctx context.Context, event *payment.WebhookEvent) error {
	switch event.Type {
	case payment.EventCheckoutSessionCompleted:
		session, err := event.Session()
		if err != nil {
			return err
		}
		o, err := s.ConfirmOrder(ctx, session.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to reconcile completed session %s: %w", session.ID, err)
		}
		s.logger.WithFields(logrus.Fields{
			"order_id":   o.ID,
			"session_id": session.ID,
		}).Info("order reconciled from webhook")
		return nil

	case payment.EventPaymentFailed, payment.EventCheckoutSessionExpired:
		s.logger.WithField("event_type", event.Type).Info("payment did not complete")
		return nil

	default:
		s.logger.WithField("event_type", event.Type).Debug("ignoring webhook event")
		return nil
	}
}

// buildOrder assembles the durable order from a paid gateway session
func (s *Service) buildOrder(session *payment.CheckoutSession, customerID *uint) (*order.Order, error) {
	info := UnpackCustomer(session.Metadata)

	lines, err := UnpackCart(session.Metadata)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		// Metadata was absent or truncated; fall back to the gateway's own
		// line items so the order is still reconstructable
		for _, item := range session.LineItems {
			lines = append(lines, cart.Line{
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: decimal.New(item.UnitAmount, -2),
			})
		}
	}
	if len(lines) == 0 {
		return nil, &order.ValidationError{Message: "payment session carries no cart contents"}
	}

	// The gateway's reported total is authoritative; back-compute subtotal
	// and tax so that subtotal + tax == total to the cent
	total := decimal.New(session.AmountTotal, -2)
	taxRate := decimal.NewFromFloat(s.config.Checkout.TaxRate)
	subtotal := total.Div(decimal.NewFromInt(1).Add(taxRate)).Round(2)
	tax := total.Sub(subtotal)

	// The caller-supplied customer takes precedence over session metadata
	resolvedCustomerID := customerID
	if resolvedCustomerID == nil {
		resolvedCustomerID = info.CustomerID
	}

	email := info.Email
	if email == "" {
		email = session.CustomerEmail
	}

	fulfillment := info.OrderType
	if fulfillment != order.FulfillmentPickup && fulfillment != order.FulfillmentDelivery {
		fulfillment = order.FulfillmentPickup
	}

	o := &order.Order{
		OrderNumber:     order.GenerateOrderNumber(),
		Status:          order.StatusConfirmed,
		Subtotal:        subtotal,
		Tax:             tax,
		Total:           total,
		FulfillmentType: fulfillment,
		PickupTime:      ParsePickupTime(info.PickupDate, info.PickupTime),
		CustomerID:      resolvedCustomerID,
		CustomerName:    info.Name,
		CustomerEmail:   email,
		CustomerPhone:   info.Phone,
		Notes:           info.Notes,
		StripeSessionID: &session.ID,
		Lines:           order.LinesFromCart(lines),
	}
	if info.DeliveryAddress != nil {
		o.DeliveryAddress = *info.DeliveryAddress
	}
	if session.PaymentIntentID != "" {
		intentID := session.PaymentIntentID
		o.PaymentIntentID = &intentID
	}

	return o, nil
}

// NormalizeOrigin forces an http(s) scheme onto the configured frontend
// origin and strips any trailing slash
func NormalizeOrigin(raw string) string {
	origin := strings.TrimSpace(raw)
	if origin == "" {
		return origin
	}
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		origin = "https://" + origin
	}
	return strings.TrimRight(origin, "/")
}

// toMinorUnits converts a 2-decimal major amount into minor currency units
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
