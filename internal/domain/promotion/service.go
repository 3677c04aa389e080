// internal/domain/promotion/service.go
package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// Validation is the outcome of validating a promo code against a cart.
// Business rejections (unknown code, expired, below minimum) are reported
// through Valid=false and Message, not through an error.
type Validation struct {
	Valid    bool            `json:"valid"`
	Message  string          `json:"message,omitempty"`
	Special  *SpecialSummary `json:"special,omitempty"`
	Discount decimal.Decimal `json:"discount"`
}

// Service handles promo code validation and redemption
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new promotion service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func invalid(message string) *Validation {
	return &Validation{Valid: false, Message: message, Discount: decimal.Zero}
}

// ValidateCode checks a promo code against the cart and computes the
// discount it would yield. This flow is read-only; the usage counter is
// only incremented on actual redemption at order confirmation.
func (s *Service) ValidateCode(ctx context.Context, code string, subtotal decimal.Decimal, lines []cart.Line) (*Validation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return invalid("Promo code is required"), nil
	}

	sp, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("Invalid promo code"), nil
		}
		return nil, fmt.Errorf("failed to validate promo code: %w", err)
	}

	if !sp.IsWithinWindow(s.now()) {
		return invalid("This promo code is not currently active"), nil
	}

	if !sp.HasRemainingUses() {
		return invalid("This promo code has reached its usage limit"), nil
	}

	if sp.MinPurchase != nil && subtotal.LessThan(*sp.MinPurchase) {
		return invalid(fmt.Sprintf("A minimum purchase of $%s is required for this code",
			sp.MinPurchase.StringFixed(2))), nil
	}

	discount := ComputeDiscount(sp, subtotal, lines)

	return &Validation{
		Valid:    true,
		Special:  sp.Summary(),
		Discount: discount,
	}, nil
}

// RedeemByCode reserves one use of the special with the given code. It is
// called once per confirmed order that carried a promo code.
func (s *Service) RedeemByCode(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	sp, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to look up promo code for redemption: %w", err)
	}

	return s.repo.ReserveUse(ctx, sp)
}
