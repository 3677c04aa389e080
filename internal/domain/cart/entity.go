// internal/domain/cart/entity.go
package cart

import (
	"github.com/shopspring/decimal"
)

// Line represents one priced, quantity-bearing entry in a prospective
// purchase. Lines are ephemeral: they are supplied by the client, priced at
// submission time, and only persisted once an order is created from them.
type Line struct {
	ProductID *uint           `json:"product_id,omitempty"` // nil for ad-hoc lines
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Total returns the line total (unit price times quantity).
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal returns the sum of all line totals.
func Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}
	return subtotal
}

// TotalQuantity returns the sum of all line quantities.
func TotalQuantity(lines []Line) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}
