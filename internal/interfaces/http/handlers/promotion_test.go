// internal/interfaces/http/handlers/promotion_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/promotion"
)

type stubSpecialRepo struct {
	special *promotion.Special
}

func (r *stubSpecialRepo) FindActiveByCode(ctx context.Context, code string) (*promotion.Special, error) {
	if r.special == nil || r.special.Code == nil || *r.special.Code != code {
		return nil, promotion.ErrNotFound
	}
	return r.special, nil
}

func (r *stubSpecialRepo) ReserveUse(ctx context.Context, sp *promotion.Special) error {
	return nil
}

func percentSpecial(code string) *promotion.Special {
	return &promotion.Special{
		ID:        7,
		Name:      "Welcome discount",
		Type:      promotion.SpecialTypePercentage,
		Value:     decimal.NewFromInt(10),
		StartDate: time.Now().Add(-24 * time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
		IsActive:  true,
		Code:      &code,
	}
}

func newValidateRouter(repo promotion.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &PromotionHandler{
		promoService: promotion.NewService(repo),
		config:       &config.Config{},
	}
	router := gin.New()
	router.POST("/promotions/validate", h.ValidateCode)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestValidateCode_Success(t *testing.T) {
	router := newValidateRouter(&stubSpecialRepo{special: percentSpecial("WELCOME10")})

	rec := postJSON(router, "/promotions/validate",
		`{"code":"welcome10","items":[{"product_id":3,"name":"Latte","price":"4.50","quantity":2}]}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Valid    bool                      `json:"valid"`
		Special  *promotion.SpecialSummary `json:"special"`
		Discount decimal.Decimal           `json:"discount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	require.NotNil(t, resp.Special)
	assert.Equal(t, uint(7), resp.Special.ID)
	assert.Equal(t, "WELCOME10", resp.Special.Code)
	assert.Equal(t, promotion.SpecialTypePercentage, resp.Special.Type)
	assert.True(t, resp.Discount.Equal(decimal.RequireFromString("0.90")), "got %s", resp.Discount)
}

func TestValidateCode_UnknownCodeIsBusinessRejection(t *testing.T) {
	router := newValidateRouter(&stubSpecialRepo{})

	rec := postJSON(router, "/promotions/validate", `{"code":"NOPE","subtotal":"10.00"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Valid   bool   `json:"valid"`
		Message string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, "Invalid promo code", resp.Message)
}

func TestValidateCode_MalformedBody(t *testing.T) {
	router := newValidateRouter(&stubSpecialRepo{})

	rec := postJSON(router, "/promotions/validate", `{"code":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
