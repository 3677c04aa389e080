// internal/domain/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors for order persistence
var (
	// ErrNotFound indicates no order matches the given identifier
	ErrNotFound = errors.New("order not found")

	// ErrDuplicate indicates an insert hit a uniqueness constraint (payment
	// session id or order number); for session ids this means a concurrent
	// request already created the order
	ErrDuplicate = errors.New("duplicate order")
)

// Repository handles transactional order persistence. An order and its lines
// are always written as a single atomic unit.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithLines persists the order and all of its lines in one
// transaction; either everything is stored or nothing is.
func (r *Repository) CreateWithLines(ctx context.Context, o *Order) error {
	lines := o.Lines
	o.Lines = nil

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Create(o).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range lines {
		lines[i].OrderID = o.ID
		if err := tx.Create(&lines[i]).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create order line: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}

	o.Lines = lines
	return nil
}

// GetByID retrieves a single order with its lines
func (r *Repository) GetByID(ctx context.Context, id uint) (*Order, error) {
	var o Order
	result := r.db.WithContext(ctx).
		Preload("Lines").
		First(&o, id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &o, nil
}

// GetByNumber retrieves a single order by its human-readable order number
func (r *Repository) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var o Order
	result := r.db.WithContext(ctx).
		Preload("Lines").
		Where("order_number = ?", orderNumber).
		First(&o)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &o, nil
}

// GetBySessionID retrieves the order created from the given payment session,
// the idempotency key for checkout reconciliation
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	var o Order
	result := r.db.WithContext(ctx).
		Preload("Lines").
		Where("stripe_session_id = ?", sessionID).
		First(&o)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order by session: %w", result.Error)
	}

	return &o, nil
}

// ListRequest represents order list query parameters
type ListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Status Status `form:"status"`
}

// ListResponse represents orders with pagination
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// List retrieves orders with optional status filtering and pagination,
// newest first
func (r *Repository) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	var orders []Order
	var total int64

	query := r.db.WithContext(ctx).Model(&Order{}).Preload("Lines")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// UpdateStatus sets the status of an existing order and returns the updated
// record. The caller is responsible for validating the target status.
func (r *Repository) UpdateStatus(ctx context.Context, id uint, status Status) (*Order, error) {
	var o Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&o).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return r.GetByID(ctx, id)
}
