// internal/domain/customer/entity.go
package customer

import (
	"time"

	"gorm.io/gorm"
)

// Customer represents a registered storefront customer. Account management
// and authentication are owned by the auth service; orders hold a non-owning
// reference to this entity and snapshot its contact fields at creation time.
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	FirstName string         `gorm:"size:100" json:"first_name"`
	LastName  string         `gorm:"size:100" json:"last_name"`
	Phone     string         `gorm:"size:20" json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Customer) TableName() string { return "customers" }
