package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-backend/internal/domain/cart"
)

// --- Mock repository ---

type mockRepo struct {
	special    *Special
	findErr    error
	reserveErr error
	reserved   []uint
}

func (m *mockRepo) FindActiveByCode(_ context.Context, _ string) (*Special, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.special, nil
}

func (m *mockRepo) ReserveUse(_ context.Context, sp *Special) error {
	if m.reserveErr != nil {
		return m.reserveErr
	}
	m.reserved = append(m.reserved, sp.ID)
	return nil
}

// --- Helpers ---

func activeSpecial(code string) *Special {
	return &Special{
		ID:        1,
		Name:      "Test special",
		Type:      SpecialTypePercentage,
		Value:     decimal.NewFromInt(10),
		StartDate: time.Now().Add(-24 * time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
		IsActive:  true,
		Code:      &code,
	}
}

func testLines() []cart.Line {
	return []cart.Line{
		{Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 2},
	}
}

// --- Tests ---

func TestValidateCode_EmptyCode(t *testing.T) {
	svc := NewService(&mockRepo{})

	result, err := svc.ValidateCode(context.Background(), "  ", decimal.NewFromInt(10), testLines())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Promo code is required", result.Message)
}

func TestValidateCode_UnknownCode(t *testing.T) {
	svc := NewService(&mockRepo{findErr: ErrNotFound})

	result, err := svc.ValidateCode(context.Background(), "NOPE", decimal.NewFromInt(10), testLines())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Invalid promo code", result.Message)
}

func TestValidateCode_OutsideWindow(t *testing.T) {
	sp := activeSpecial("EXPIRED")
	sp.StartDate = time.Now().Add(-48 * time.Hour)
	sp.EndDate = time.Now().Add(-24 * time.Hour)
	svc := NewService(&mockRepo{special: sp})

	result, err := svc.ValidateCode(context.Background(), "EXPIRED", decimal.NewFromInt(10), testLines())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "This promo code is not currently active", result.Message)
}

func TestValidateCode_UsageExhausted(t *testing.T) {
	sp := activeSpecial("MAXED")
	maxUses := 5
	sp.MaxUses = &maxUses
	sp.UsedCount = 5
	svc := NewService(&mockRepo{special: sp})

	result, err := svc.ValidateCode(context.Background(), "MAXED", decimal.NewFromInt(10), testLines())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "This promo code has reached its usage limit", result.Message)
}

func TestValidateCode_BelowMinimumPurchase(t *testing.T) {
	sp := activeSpecial("MIN40")
	minPurchase := decimal.RequireFromString("40.00")
	sp.MinPurchase = &minPurchase
	svc := NewService(&mockRepo{special: sp})

	result, err := svc.ValidateCode(context.Background(), "MIN40", decimal.RequireFromString("39.99"), testLines())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "40.00")
}

func TestValidateCode_AtMinimumPurchase(t *testing.T) {
	sp := activeSpecial("MIN40")
	minPurchase := decimal.RequireFromString("40.00")
	sp.MinPurchase = &minPurchase
	svc := NewService(&mockRepo{special: sp})

	result, err := svc.ValidateCode(context.Background(), "MIN40", decimal.RequireFromString("40.00"), testLines())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.True(t, result.Discount.Equal(decimal.RequireFromString("4.00")), "got %s", result.Discount)
}

func TestValidateCode_Success(t *testing.T) {
	svc := NewService(&mockRepo{special: activeSpecial("WELCOME10")})

	result, err := svc.ValidateCode(context.Background(), "welcome10", decimal.RequireFromString("50.00"), testLines())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, result.Special)
	assert.Equal(t, "WELCOME10", result.Special.Code)
	assert.True(t, result.Discount.Equal(decimal.RequireFromString("5.00")), "got %s", result.Discount)
}

func TestRedeemByCode_ReservesUse(t *testing.T) {
	repo := &mockRepo{special: activeSpecial("WELCOME10")}
	svc := NewService(repo)

	err := svc.RedeemByCode(context.Background(), "welcome10")
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, repo.reserved)
}

func TestRedeemByCode_Exhausted(t *testing.T) {
	repo := &mockRepo{special: activeSpecial("MAXED"), reserveErr: ErrUsageExhausted}
	svc := NewService(repo)

	err := svc.RedeemByCode(context.Background(), "MAXED")
	require.ErrorIs(t, err, ErrUsageExhausted)
}

func TestRedeemByCode_EmptyCodeIsNoop(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	err := svc.RedeemByCode(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, repo.reserved)
}
