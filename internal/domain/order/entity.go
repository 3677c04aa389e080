// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/your-org/storefront-backend/internal/domain/customer"
)

// Status represents the fulfillment state of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// KnownStatuses lists every status an order may be set to
var KnownStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

// IsValid reports whether the status is one of the known values
func (s Status) IsValid() bool {
	for _, known := range KnownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// FulfillmentType represents how an order reaches the customer
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

// DeliveryAddress is the structured delivery destination (embedded in Order)
type DeliveryAddress struct {
	Street     string `gorm:"size:255" json:"street,omitempty"`
	City       string `gorm:"size:100" json:"city,omitempty"`
	State      string `gorm:"size:100" json:"state,omitempty"`
	PostalCode string `gorm:"size:20" json:"postal_code,omitempty"`
}

// Order represents a durable customer order. Customer contact fields are a
// point-in-time snapshot so the order stays readable after the customer
// record changes or is deleted; the same holds for line items and the
// catalog.
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	Status      Status `gorm:"not null;default:'pending';index" json:"status"`

	// Financial information, 2-decimal fixed point
	Subtotal decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"tax"`
	Total    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`

	// Fulfillment
	FulfillmentType FulfillmentType `gorm:"not null;size:20;default:'pickup'" json:"fulfillment_type"`
	PickupTime      *time.Time      `json:"pickup_time,omitempty"`
	DeliveryAddress DeliveryAddress `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery_address"`

	// Customer snapshot; CustomerID is a non-owning, nullable reference
	CustomerID    *uint  `gorm:"index" json:"customer_id"`
	CustomerName  string `gorm:"size:255" json:"customer_name"`
	CustomerEmail string `gorm:"not null;size:255" json:"customer_email"`
	CustomerPhone string `gorm:"size:20" json:"customer_phone"`

	Notes string `gorm:"type:text" json:"notes"`

	// External payment gateway references; nil for orders created without a
	// gateway session (manual/offline flows)
	StripeSessionID *string `gorm:"uniqueIndex;size:255" json:"stripe_session_id,omitempty"`
	PaymentIntentID *string `gorm:"size:255" json:"payment_intent_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Lines    []OrderLine        `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines"`
	Customer *customer.Customer `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"customer,omitempty"`
}

// OrderLine represents one line item persisted under an order. All fields
// are fixed at creation time and never recomputed from the live catalog.
type OrderLine struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductID   *uint           `gorm:"index" json:"product_id,omitempty"`
	ProductName string          `gorm:"not null;size:255" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"line_total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderLine) TableName() string { return "order_lines" }

// Summary is the minimal order view returned by write operations
type Summary struct {
	ID          uint            `json:"id"`
	OrderNumber string          `json:"order_number"`
	Status      Status          `json:"status"`
	Total       decimal.Decimal `json:"total"`
}

// Summarize returns the minimal view of the order
func (o *Order) Summarize() *Summary {
	return &Summary{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Total:       o.Total,
	}
}
