package order

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

func testConfig() *config.Config {
	return &config.Config{
		Checkout: config.CheckoutConfig{
			TaxRate: 0.085,
		},
	}
}

func TestStatusIsValid(t *testing.T) {
	for _, status := range KnownStatuses {
		assert.True(t, status.IsValid(), "status %q", status)
	}

	assert.False(t, Status("shipped").IsValid())
	assert.False(t, Status("").IsValid())
	assert.False(t, Status("Pending").IsValid())
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "cart is empty", validationErr.Message)
}

func TestCreateOrder_MissingCustomer(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		Lines: []cart.Line{
			{Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 1},
		},
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "name and email")
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		Lines: []cart.Line{
			{Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 0},
		},
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "Latte")
}

func TestCreateOrder_UnknownFulfillmentType(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		Lines: []cart.Line{
			{Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 1},
		},
		CustomerName:    "Ada",
		CustomerEmail:   "ada@example.com",
		FulfillmentType: FulfillmentType("drone"),
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "drone")
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.UpdateOrderStatus(context.Background(), 1, Status("shipped"))
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestListOrders_UnknownStatusFilter(t *testing.T) {
	svc := NewService(nil, testConfig())

	_, err := svc.ListOrders(context.Background(), &ListRequest{Status: Status("archived")})
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestLinesFromCart(t *testing.T) {
	productID := uint(7)
	lines := LinesFromCart([]cart.Line{
		{ProductID: &productID, Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 3},
		{Name: "Custom cake", UnitPrice: decimal.RequireFromString("25.00"), Quantity: 1},
	})

	require.Len(t, lines, 2)

	assert.Equal(t, &productID, lines[0].ProductID)
	assert.Equal(t, "Latte", lines[0].ProductName)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, lines[0].LineTotal.Equal(decimal.RequireFromString("13.50")), "got %s", lines[0].LineTotal)

	assert.Nil(t, lines[1].ProductID)
	assert.True(t, lines[1].LineTotal.Equal(decimal.RequireFromString("25.00")), "got %s", lines[1].LineTotal)
}

func TestGenerateOrderNumber_Format(t *testing.T) {
	number := GenerateOrderNumber()

	assert.True(t, strings.HasPrefix(number, "ORD-"), "got %q", number)

	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], 6)
	assert.Equal(t, strings.ToUpper(number), number)
}

func TestGenerateOrderNumber_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := GenerateOrderNumber()
		assert.False(t, seen[number], "duplicate order number %q", number)
		seen[number] = true
	}
}
