// internal/domain/promotion/repository.go
package promotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Sentinel errors for special lookups and redemption
var (
	ErrNotFound       = errors.New("special not found")
	ErrUsageExhausted = errors.New("special usage limit reached")
)

// Repository provides access to stored specials
type Repository interface {
	// FindActiveByCode returns the active special with the given
	// (case-insensitive) code, or ErrNotFound
	FindActiveByCode(ctx context.Context, code string) (*Special, error)

	// ReserveUse atomically increments the usage counter of a special,
	// failing with ErrUsageExhausted when the ceiling is already reached
	ReserveUse(ctx context.Context, sp *Special) error
}

const specialCacheTTL = 5 * time.Minute

// GormRepository implements Repository on PostgreSQL with a short-lived
// Redis cache in front of code lookups. Usage counters are only authoritative
// in the database; a stale cached counter is acceptable because redemption
// re-checks the ceiling atomically.
type GormRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewGormRepository creates a special repository backed by gorm and Redis
func NewGormRepository(db *gorm.DB, redisClient *redis.Client) *GormRepository {
	return &GormRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// FindActiveByCode looks up an active special by its redemption code
func (r *GormRepository) FindActiveByCode(ctx context.Context, code string) (*Special, error) {
	cacheKey := fmt.Sprintf("special:code:%s", code)

	if r.redisClient != nil {
		if cached, err := r.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var sp Special
			if err := json.Unmarshal([]byte(cached), &sp); err == nil {
				return &sp, nil
			}
		}
	}

	var sp Special
	result := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&sp)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up special: %w", result.Error)
	}

	if r.redisClient != nil {
		if data, err := json.Marshal(&sp); err == nil {
			r.redisClient.Set(ctx, cacheKey, data, specialCacheTTL)
		}
	}

	return &sp, nil
}

// ReserveUse increments used_count with a single conditional update so that
// concurrent redemptions cannot exceed the ceiling. A zero affected-row
// count means the ceiling was already reached.
func (r *GormRepository) ReserveUse(ctx context.Context, sp *Special) error {
	result := r.db.WithContext(ctx).Model(&Special{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", sp.ID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))

	if result.Error != nil {
		return fmt.Errorf("failed to reserve special use: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUsageExhausted
	}

	// Drop the cached copy so the next lookup sees the fresh counter
	if r.redisClient != nil && sp.Code != nil {
		r.redisClient.Del(ctx, fmt.Sprintf("special:code:%s", *sp.Code))
	}

	return nil
}
