// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
)

// Payment status values reported by the gateway for a checkout session
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

// Webhook event types this backend reacts to
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventCheckoutSessionExpired   = "checkout.session.expired"
	EventPaymentFailed            = "payment_intent.payment_failed"
)

// SessionLineItem is one purchasable line handed to the gateway. Amounts are
// in minor currency units (cents).
type SessionLineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
}

// CreateSessionRequest holds everything needed to open a hosted checkout
// session. Metadata is an opaque bag the gateway stores verbatim and hands
// back at confirmation time; values are size-constrained strings.
type CreateSessionRequest struct {
	LineItems     []SessionLineItem
	CustomerEmail string
	Currency      string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the gateway's view of one checkout attempt. Its ID is
// the idempotency key for order creation.
type CheckoutSession struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	AmountTotal     int64
	CustomerEmail   string
	PaymentIntentID string
	Metadata        map[string]string
	LineItems       []SessionLineItem
}

// IsPaid reports whether the session's payment has completed
func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// WebhookEvent is a verified asynchronous notification from the gateway
type WebhookEvent struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// Session decodes the event payload as a checkout session
func (e *WebhookEvent) Session() (*CheckoutSession, error) {
	var raw stripeSession
	if err := json.Unmarshal(e.Object, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode session from webhook event: %w", err)
	}
	return raw.toSession(), nil
}

// Gateway abstracts the external hosted-payment provider. The provider owns
// payment collection; this backend only opens sessions, reads them back, and
// verifies the provider's webhook notifications.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req *CreateSessionRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}

// GatewayError represents a failed call to the payment provider
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error (status %d): %s", e.StatusCode, e.Message)
}
