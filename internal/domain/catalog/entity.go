// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog product. Catalog management is owned by the
// admin service; this backend reads products for pricing and references them
// from order lines and specials.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Image       string          `gorm:"size:500" json:"image"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
}

// Category represents a product category
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Description string         `gorm:"size:500" json:"description"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }
