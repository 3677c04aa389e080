// internal/domain/promotion/evaluator.go
package promotion

import (
	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// Defaults for buy-x-get-y specials when the rule leaves them unset
const (
	defaultBuyQuantity = 2
	defaultGetQuantity = 1
)

var oneHundred = decimal.NewFromInt(100)

// ComputeDiscount calculates the discount a special yields for the given
// subtotal and cart lines. It is a pure function: eligibility (window,
// usage, minimum purchase) is the caller's concern. The result is rounded
// to 2 decimal places as the final step and is never negative.
func ComputeDiscount(sp *Special, subtotal decimal.Decimal, lines []cart.Line) decimal.Decimal {
	var amount decimal.Decimal

	switch sp.Type {
	case SpecialTypePercentage, SpecialTypeBundle:
		// Bundle specials use the same percentage formula; the value applies
		// to a bundle-qualifying subset conceptually, but the computation is
		// cart-wide in this design.
		amount = subtotal.Mul(sp.Value).Div(oneHundred)

	case SpecialTypeFixedPrice:
		// Never discount more than the subtotal
		amount = decimal.Min(sp.Value, subtotal)

	case SpecialTypeBuyXGetY:
		amount = computeBuyXGetY(sp, subtotal, lines)

	default:
		// Unknown rule types yield no discount rather than an error
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

// computeBuyXGetY approximates the buy-x-get-y discount using the average
// item price across the whole cart instead of identifying the specific
// qualifying and free items. This is a known, intentional simplification.
func computeBuyXGetY(sp *Special, subtotal decimal.Decimal, lines []cart.Line) decimal.Decimal {
	buyQty := defaultBuyQuantity
	if sp.BuyQuantity != nil {
		buyQty = *sp.BuyQuantity
	}
	getQty := defaultGetQuantity
	if sp.GetQuantity != nil {
		getQty = *sp.GetQuantity
	}

	cycle := buyQty + getQty
	if cycle <= 0 {
		return decimal.Zero
	}

	totalItems := cart.TotalQuantity(lines)
	if totalItems <= 0 || totalItems < buyQty {
		return decimal.Zero
	}

	avgPrice := subtotal.Div(decimal.NewFromInt(int64(totalItems)))
	freeItems := (totalItems / cycle) * getQty

	return avgPrice.Mul(decimal.NewFromInt(int64(freeItems)))
}
