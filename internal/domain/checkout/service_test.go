package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
)

// --- Mock implementations ---

type mockGateway struct {
	createReq  *payment.CreateSessionRequest
	createResp *payment.CheckoutSession
	createErr  error
	session    *payment.CheckoutSession
	getErr     error
	getCalls   int
}

func (m *mockGateway) CreateCheckoutSession(_ context.Context, req *payment.CreateSessionRequest) (*payment.CheckoutSession, error) {
	m.createReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResp, nil
}

func (m *mockGateway) GetCheckoutSession(_ context.Context, _ string) (*payment.CheckoutSession, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.session, nil
}

func (m *mockGateway) VerifyWebhook(_ []byte, _ string) (*payment.WebhookEvent, error) {
	return nil, errors.New("not used in tests")
}

type mockStore struct {
	bySession map[string]*order.Order
	createErr error
	nextID    uint
}

func newMockStore() *mockStore {
	return &mockStore{bySession: make(map[string]*order.Order), nextID: 1}
}

func (m *mockStore) CreateWithLines(_ context.Context, o *order.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	if o.StripeSessionID != nil {
		if _, exists := m.bySession[*o.StripeSessionID]; exists {
			return order.ErrDuplicate
		}
	}
	o.ID = m.nextID
	m.nextID++
	if o.StripeSessionID != nil {
		m.bySession[*o.StripeSessionID] = o
	}
	return nil
}

func (m *mockStore) GetBySessionID(_ context.Context, sessionID string) (*order.Order, error) {
	o, ok := m.bySession[sessionID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

type mockRedeemer struct {
	codes []string
	err   error
}

func (m *mockRedeemer) RedeemByCode(_ context.Context, code string) error {
	if m.err != nil {
		return m.err
	}
	m.codes = append(m.codes, code)
	return nil
}

// --- Helpers ---

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{
			FrontendURL: "shop.example.com/",
			Currency:    "usd",
			TaxRate:     0.085,
			DeliveryFee: 5.00,
		},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

func testCart() []cart.Line {
	productID := uint(3)
	return []cart.Line{
		{ProductID: &productID, Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 2},
		{Name: "Croissant", UnitPrice: decimal.RequireFromString("3.75"), Quantity: 1},
	}
}

func paidSession(id string, amountTotal int64, meta map[string]string) *payment.CheckoutSession {
	return &payment.CheckoutSession{
		ID:              id,
		Status:          "complete",
		PaymentStatus:   payment.PaymentStatusPaid,
		AmountTotal:     amountTotal,
		CustomerEmail:   "ada@example.com",
		PaymentIntentID: "pi_123",
		Metadata:        meta,
	}
}

func metadataFor(t *testing.T, info *CustomerInfo, lines []cart.Line) map[string]string {
	t.Helper()
	meta, err := PackMetadata(info, lines)
	require.NoError(t, err)
	return meta
}

// --- CreateSession ---

func TestCreateSession_EmptyCart(t *testing.T) {
	svc := NewService(&mockGateway{}, newMockStore(), &mockRedeemer{}, testConfig())

	_, err := svc.CreateSession(context.Background(), nil, &CustomerInfo{})

	var validationErr *order.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "cart is empty", validationErr.Message)
}

func TestCreateSession_Pickup(t *testing.T) {
	gateway := &mockGateway{
		createResp: &payment.CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"},
	}
	svc := NewService(gateway, newMockStore(), &mockRedeemer{}, testConfig())

	result, err := svc.CreateSession(context.Background(), testCart(), &CustomerInfo{
		OrderType: order.FulfillmentPickup,
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_1", result.SessionID)
	assert.Equal(t, "https://pay.example.com/cs_1", result.URL)

	req := gateway.createReq
	require.NotNil(t, req)
	require.Len(t, req.LineItems, 2)
	assert.Equal(t, "Latte", req.LineItems[0].Name)
	assert.Equal(t, int64(450), req.LineItems[0].UnitAmount)
	assert.Equal(t, 2, req.LineItems[0].Quantity)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "https://shop.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://shop.example.com/checkout/cancel", req.CancelURL)
	assert.Equal(t, "pickup", req.Metadata["order_type"])
}

func TestCreateSession_DeliveryAddsFeeLine(t *testing.T) {
	gateway := &mockGateway{
		createResp: &payment.CheckoutSession{ID: "cs_2", URL: "https://pay.example.com/cs_2"},
	}
	svc := NewService(gateway, newMockStore(), &mockRedeemer{}, testConfig())

	_, err := svc.CreateSession(context.Background(), testCart(), &CustomerInfo{
		OrderType: order.FulfillmentDelivery,
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		DeliveryAddress: &order.DeliveryAddress{
			Street: "1 Main St",
			City:   "Springfield",
		},
	})
	require.NoError(t, err)

	req := gateway.createReq
	require.Len(t, req.LineItems, 3)
	fee := req.LineItems[2]
	assert.Equal(t, "Delivery Fee", fee.Name)
	assert.Equal(t, int64(500), fee.UnitAmount)
	assert.Equal(t, 1, fee.Quantity)
}

func TestCreateSession_InvalidQuantity(t *testing.T) {
	svc := NewService(&mockGateway{}, newMockStore(), &mockRedeemer{}, testConfig())

	lines := []cart.Line{{Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: -1}}
	_, err := svc.CreateSession(context.Background(), lines, &CustomerInfo{})

	var validationErr *order.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCreateSession_GatewayError(t *testing.T) {
	gateway := &mockGateway{createErr: &payment.GatewayError{StatusCode: 502, Message: "unavailable"}}
	svc := NewService(gateway, newMockStore(), &mockRedeemer{}, testConfig())

	_, err := svc.CreateSession(context.Background(), testCart(), &CustomerInfo{Email: "ada@example.com"})

	var gatewayErr *payment.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
}

// --- ConfirmOrder ---

func TestConfirmOrder_NotPaid(t *testing.T) {
	gateway := &mockGateway{
		session: &payment.CheckoutSession{ID: "cs_1", PaymentStatus: payment.PaymentStatusUnpaid},
	}
	svc := NewService(gateway, newMockStore(), &mockRedeemer{}, testConfig())

	_, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.ErrorIs(t, err, ErrPaymentNotCompleted)
}

func TestConfirmOrder_CreatesOrderFromMetadata(t *testing.T) {
	lines := testCart()
	meta := metadataFor(t, &CustomerInfo{
		OrderType:  order.FulfillmentPickup,
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		Phone:      "555-0100",
		PickupDate: "2026-09-01",
		PickupTime: "14:30",
	}, lines)

	// subtotal 12.75, tax 1.08, total 13.83
	gateway := &mockGateway{session: paidSession("cs_1", 1383, meta)}
	store := newMockStore()
	svc := NewService(gateway, store, &mockRedeemer{}, testConfig())

	o, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.NoError(t, err)

	assert.Equal(t, order.StatusConfirmed, o.Status)
	assert.Equal(t, "Ada Lovelace", o.CustomerName)
	assert.Equal(t, "ada@example.com", o.CustomerEmail)
	require.NotNil(t, o.StripeSessionID)
	assert.Equal(t, "cs_1", *o.StripeSessionID)
	require.NotNil(t, o.PaymentIntentID)
	assert.Equal(t, "pi_123", *o.PaymentIntentID)
	require.NotNil(t, o.PickupTime)

	// Line items survive the metadata round trip
	require.Len(t, o.Lines, len(lines))
	for i, line := range lines {
		assert.Equal(t, line.Name, o.Lines[i].ProductName)
		assert.Equal(t, line.Quantity, o.Lines[i].Quantity)
		assert.True(t, line.UnitPrice.Equal(o.Lines[i].UnitPrice),
			"line %d: got %s, want %s", i, o.Lines[i].UnitPrice, line.UnitPrice)
	}

	// Gateway total is authoritative and the identity holds to the cent
	assert.True(t, o.Total.Equal(decimal.RequireFromString("13.83")), "got %s", o.Total)
	assert.True(t, o.Subtotal.Add(o.Tax).Equal(o.Total),
		"subtotal %s + tax %s != total %s", o.Subtotal, o.Tax, o.Total)
}

func TestConfirmOrder_TaxIdentity(t *testing.T) {
	cases := []struct {
		subtotal    string
		amountTotal int64
	}{
		{"0.01", 1},
		{"19.99", 2169},
		{"1000.00", 108500},
	}

	for _, tc := range cases {
		meta := metadataFor(t, &CustomerInfo{
			OrderType: order.FulfillmentPickup,
			Name:      "Ada",
			Email:     "ada@example.com",
		}, []cart.Line{{Name: "Item", UnitPrice: decimal.RequireFromString(tc.subtotal), Quantity: 1}})

		gateway := &mockGateway{session: paidSession("cs_"+tc.subtotal, tc.amountTotal, meta)}
		svc := NewService(gateway, newMockStore(), &mockRedeemer{}, testConfig())

		o, err := svc.ConfirmOrder(context.Background(), "cs_"+tc.subtotal, nil)
		require.NoError(t, err, "subtotal %s", tc.subtotal)

		assert.True(t, o.Subtotal.Add(o.Tax).Equal(o.Total),
			"subtotal %s + tax %s != total %s", o.Subtotal, o.Tax, o.Total)
		assert.True(t, o.Subtotal.Equal(decimal.RequireFromString(tc.subtotal)),
			"got subtotal %s, want %s", o.Subtotal, tc.subtotal)
		assert.False(t, o.Subtotal.IsNegative())
		assert.False(t, o.Total.IsNegative())
	}
}

func TestConfirmOrder_Idempotent(t *testing.T) {
	meta := metadataFor(t, &CustomerInfo{
		OrderType: order.FulfillmentPickup,
		Name:      "Ada",
		Email:     "ada@example.com",
	}, testCart())

	gateway := &mockGateway{session: paidSession("cs_1", 1383, meta)}
	store := newMockStore()
	svc := NewService(gateway, store, &mockRedeemer{}, testConfig())

	first, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.NoError(t, err)

	second, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.bySession, 1)
	// The second call short-circuits before touching the gateway again
	assert.Equal(t, 1, gateway.getCalls)
}

func TestConfirmOrder_DuplicateRaceReturnsExisting(t *testing.T) {
	meta := metadataFor(t, &CustomerInfo{
		OrderType: order.FulfillmentPickup,
		Name:      "Ada",
		Email:     "ada@example.com",
	}, testCart())

	gateway := &mockGateway{session: paidSession("cs_1", 1383, meta)}
	store := newMockStore()

	// A webhook confirmation lands between the idempotency read and the
	// insert: the store already holds an order for the session, but the
	// first read missed it
	sessionID := "cs_1"
	winner := &order.Order{ID: 99, StripeSessionID: &sessionID}
	raced := &racingStore{mockStore: store, winner: winner}

	svc := NewService(gateway, raced, &mockRedeemer{}, testConfig())

	o, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.NoError(t, err)
	assert.Equal(t, uint(99), o.ID)
}

// racingStore simulates a concurrent confirmation winning between the
// idempotency read and the insert
type racingStore struct {
	*mockStore
	winner *order.Order
	read   bool
}

func (r *racingStore) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	if !r.read {
		r.read = true
		return nil, order.ErrNotFound
	}
	return r.winner, nil
}

func (r *racingStore) CreateWithLines(ctx context.Context, o *order.Order) error {
	return order.ErrDuplicate
}

func TestConfirmOrder_CallerCustomerIDWins(t *testing.T) {
	metaCustomerID := uint(5)
	meta := metadataFor(t, &CustomerInfo{
		OrderType:  order.FulfillmentPickup,
		Name:       "Ada",
		Email:      "ada@example.com",
		CustomerID: &metaCustomerID,
	}, testCart())

	gateway := &mockGateway{session: paidSession("cs_1", 1383, meta)}
	svc := NewService(gateway, newMockStore(), &mockRedeemer{}, testConfig())

	callerID := uint(42)
	o, err := svc.ConfirmOrder(context.Background(), "cs_1", &callerID)
	require.NoError(t, err)
	require.NotNil(t, o.CustomerID)
	assert.Equal(t, uint(42), *o.CustomerID)
}

func TestConfirmOrder_RedeemsPromoCode(t *testing.T) {
	meta := metadataFor(t, &CustomerInfo{
		OrderType: order.FulfillmentPickup,
		Name:      "Ada",
		Email:     "ada@example.com",
		PromoCode: "WELCOME10",
	}, testCart())

	gateway := &mockGateway{session: paidSession("cs_1", 1383, meta)}
	redeemer := &mockRedeemer{}
	svc := NewService(gateway, newMockStore(), redeemer, testConfig())

	_, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"WELCOME10"}, redeemer.codes)
}

func TestConfirmOrder_RedeemFailureIsSwallowed(t *testing.T) {
	meta := metadataFor(t, &CustomerInfo{
		OrderType: order.FulfillmentPickup,
		Name:      "Ada",
		Email:     "ada@example.com",
		PromoCode: "MAXED",
	}, testCart())

	gateway := &mockGateway{session: paidSession("cs_1", 1383, meta)}
	redeemer := &mockRedeemer{err: errors.New("usage limit reached")}
	svc := NewService(gateway, newMockStore(), redeemer, testConfig())

	o, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
}

func TestConfirmOrder_FallsBackToGatewayLineItems(t *testing.T) {
	// No metadata items: the order is rebuilt from the gateway's own lines
	session := paidSession("cs_1", 1085, map[string]string{"order_type": "pickup"})
	session.LineItems = []payment.SessionLineItem{
		{Name: "Latte", UnitAmount: 450, Quantity: 2},
	}

	gateway := &mockGateway{session: session}
	svc := NewService(gateway, newMockStore(), &mockRedeemer{}, testConfig())

	o, err := svc.ConfirmOrder(context.Background(), "cs_1", nil)
	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "Latte", o.Lines[0].ProductName)
	assert.True(t, o.Lines[0].UnitPrice.Equal(decimal.RequireFromString("4.50")),
		"got %s", o.Lines[0].UnitPrice)
}

// --- HandleWebhookEvent ---

func sessionEvent(t *testing.T, eventType string, session *payment.CheckoutSession) *payment.WebhookEvent {
	t.Helper()
	object, err := json.Marshal(map[string]interface{}{
		"id":             session.ID,
		"payment_status": session.PaymentStatus,
		"amount_total":   session.AmountTotal,
		"metadata":       session.Metadata,
	})
	require.NoError(t, err)
	return &payment.WebhookEvent{ID: "evt_1", Type: eventType, Object: object}
}

func TestHandleWebhookEvent_CompletedSession(t *testing.T) {
	meta := metadataFor(t, &CustomerInfo{
		OrderType: order.FulfillmentPickup,
		Name:      "Ada",
		Email:     "ada@example.com",
	}, testCart())

	session := paidSession("cs_1", 1383, meta)
	gateway := &mockGateway{session: session}
	store := newMockStore()
	svc := NewService(gateway, store, &mockRedeemer{}, testConfig())

	event := sessionEvent(t, payment.EventCheckoutSessionCompleted, session)
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.Len(t, store.bySession, 1)
}

func TestHandleWebhookEvent_PaymentFailed(t *testing.T) {
	store := newMockStore()
	svc := NewService(&mockGateway{}, store, &mockRedeemer{}, testConfig())

	event := &payment.WebhookEvent{ID: "evt_1", Type: payment.EventPaymentFailed, Object: []byte(`{}`)}
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.Empty(t, store.bySession)
}

func TestHandleWebhookEvent_UnknownType(t *testing.T) {
	svc := NewService(&mockGateway{}, newMockStore(), &mockRedeemer{}, testConfig())

	event := &payment.WebhookEvent{ID: "evt_1", Type: "customer.created", Object: []byte(`{}`)}
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
}

// --- NormalizeOrigin ---

func TestNormalizeOrigin(t *testing.T) {
	cases := map[string]string{
		"shop.example.com":          "https://shop.example.com",
		"shop.example.com/":         "https://shop.example.com",
		"http://localhost:3000/":    "http://localhost:3000",
		"https://shop.example.com":  "https://shop.example.com",
		" https://shop.example.com": "https://shop.example.com",
		"":                          "",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizeOrigin(input), "input %q", input)
	}
}
