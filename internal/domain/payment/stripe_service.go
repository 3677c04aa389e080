// internal/domain/payment/stripe_service.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/config"
)

// Webhook signatures older than this are rejected to limit replay
const webhookTolerance = 5 * time.Minute

// Signature verification failures surfaced to the webhook endpoint
var (
	ErrMissingSignature = errors.New("missing webhook signature header")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrStaleSignature   = errors.New("webhook signature timestamp outside tolerance")
)

// StripeService implements Gateway against the Stripe REST API
type StripeService struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
	now           func() time.Time
}

// NewStripeService creates a new Stripe gateway client
func NewStripeService(cfg *config.Config) *StripeService {
	return &StripeService{
		secretKey:     cfg.External.Stripe.SecretKey,
		webhookSecret: cfg.External.Stripe.WebhookSecret,
		baseURL:       cfg.External.Stripe.APIBase,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// CreateCheckoutSession opens a single-payment hosted checkout session
func (s *StripeService) CreateCheckoutSession(ctx context.Context, req *CreateSessionRequest) (*CheckoutSession, error) {
	params := url.Values{}
	params.Set("mode", "payment")
	params.Set("success_url", req.SuccessURL)
	params.Set("cancel_url", req.CancelURL)
	if req.CustomerEmail != "" {
		params.Set("customer_email", req.CustomerEmail)
	}

	for i, item := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		params.Set(prefix+"[price_data][currency]", req.Currency)
		params.Set(prefix+"[price_data][product_data][name]", item.Name)
		params.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		params.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}

	for key, value := range req.Metadata {
		params.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	body, err := s.makeAPICall(ctx, http.MethodPost, "/checkout/sessions", params)
	if err != nil {
		return nil, err
	}

	var raw stripeSession
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session response: %w", err)
	}

	return raw.toSession(), nil
}

// GetCheckoutSession retrieves a session with its line items expanded
func (s *StripeService) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := url.Values{}
	params.Set("expand[]", "line_items")

	endpoint := "/checkout/sessions/" + url.PathEscape(sessionID)
	body, err := s.makeAPICall(ctx, http.MethodGet, endpoint, params)
	if err != nil {
		return nil, err
	}

	var raw stripeSession
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session response: %w", err)
	}

	return raw.toSession(), nil
}

// VerifyWebhook authenticates a webhook payload against its signature
// header before any of its content is trusted. The header carries a unix
// timestamp and one or more HMAC-SHA256 signatures over "<t>.<payload>".
func (s *StripeService) VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	if signatureHeader == "" {
		return nil, ErrMissingSignature
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return nil, ErrInvalidSignature
	}

	if s.now().Sub(time.Unix(timestamp, 0)) > webhookTolerance {
		return nil, ErrStaleSignature
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	verified := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	return &WebhookEvent{
		ID:     envelope.ID,
		Type:   envelope.Type,
		Object: envelope.Data.Object,
	}, nil
}

// makeAPICall performs one form-encoded request against the Stripe API
func (s *StripeService) makeAPICall(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	var reqBody io.Reader
	requestURL := s.baseURL + endpoint

	if method == http.MethodGet {
		if len(params) > 0 {
			requestURL += "?" + params.Encode()
		}
	} else {
		reqBody = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Includes timeouts: the caller must treat this as retryable,
		// never as an assumed success
		return nil, fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		message := string(body)
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: message}
	}

	return body, nil
}

// stripeSession mirrors the wire format of a Stripe checkout session
type stripeSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	CustomerEmail   string            `json:"customer_email"`
	PaymentIntent   string            `json:"payment_intent"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	LineItems struct {
		Data []struct {
			Description string `json:"description"`
			Quantity    int    `json:"quantity"`
			Price       struct {
				UnitAmount int64 `json:"unit_amount"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

func (r *stripeSession) toSession() *CheckoutSession {
	email := r.CustomerEmail
	if email == "" {
		email = r.CustomerDetails.Email
	}

	session := &CheckoutSession{
		ID:              r.ID,
		URL:             r.URL,
		Status:          r.Status,
		PaymentStatus:   r.PaymentStatus,
		AmountTotal:     r.AmountTotal,
		CustomerEmail:   email,
		PaymentIntentID: r.PaymentIntent,
		Metadata:        r.Metadata,
	}

	for _, item := range r.LineItems.Data {
		session.LineItems = append(session.LineItems, SessionLineItem{
			Name:       item.Description,
			UnitAmount: item.Price.UnitAmount,
			Quantity:   item.Quantity,
		})
	}

	return session
}
