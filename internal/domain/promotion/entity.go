// internal/domain/promotion/entity.go
package promotion

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/catalog"
)

// SpecialType represents the discount calculation policy of a special
type SpecialType string

const (
	SpecialTypePercentage SpecialType = "percentage"
	SpecialTypeFixedPrice SpecialType = "fixed_price"
	SpecialTypeBundle     SpecialType = "bundle"
	SpecialTypeBuyXGetY   SpecialType = "buy_x_get_y"
)

// Special represents a time-boxed promotional rule, optionally gated by a
// redemption code. Specials are created and edited by staff tooling; this
// engine reads them and, on redemption, increments the usage counter.
type Special struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Type        SpecialType     `gorm:"not null;size:30" json:"type"`
	Value       decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"value"`

	// Buy X Get Y parameters; unset falls back to buy 2 get 1
	BuyQuantity *int `json:"buy_quantity,omitempty"`
	GetQuantity *int `json:"get_quantity,omitempty"`

	// Validity window, both bounds inclusive
	StartDate time.Time `gorm:"not null;index" json:"start_date"`
	EndDate   time.Time `gorm:"not null;index" json:"end_date"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`

	MinPurchase *decimal.Decimal `gorm:"type:numeric(10,2)" json:"min_purchase,omitempty"`
	MaxUses     *int             `json:"max_uses,omitempty"`
	UsedCount   int              `gorm:"default:0" json:"used_count"`

	// Redemption code, stored upper-cased; nil for automatic specials
	Code *string `gorm:"uniqueIndex;size:50" json:"code,omitempty"`

	// Informational applicability filters; not enforced by the evaluator
	Products   []catalog.Product  `gorm:"many2many:special_products;" json:"products,omitempty"`
	Categories []catalog.Category `gorm:"many2many:special_categories;" json:"categories,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SpecialSummary is the minimal view of a special returned to clients.
// The full record (usage counters, filters, window) stays internal.
type SpecialSummary struct {
	ID          uint        `json:"id"`
	Name        string      `json:"name"`
	Code        string      `json:"code"`
	Type        SpecialType `json:"type"`
	Description string      `json:"description"`
}

// TableName overrides
func (Special) TableName() string { return "specials" }

// IsWithinWindow reports whether now falls inside the validity window
func (s *Special) IsWithinWindow(now time.Time) bool {
	return !now.Before(s.StartDate) && !now.After(s.EndDate)
}

// HasRemainingUses reports whether the usage ceiling has not been reached
func (s *Special) HasRemainingUses() bool {
	return s.MaxUses == nil || s.UsedCount < *s.MaxUses
}

// Summary returns the client-facing view of the special
func (s *Special) Summary() *SpecialSummary {
	code := ""
	if s.Code != nil {
		code = *s.Code
	}
	return &SpecialSummary{
		ID:          s.ID,
		Name:        s.Name,
		Code:        code,
		Type:        s.Type,
		Description: s.Description,
	}
}
