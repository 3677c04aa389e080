// internal/interfaces/http/handlers/common.go
package handlers

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// cartItem is one cart line on the wire. Clients send either "id" or
// "product_id" for the catalog reference.
type cartItem struct {
	ID        *uint           `json:"id"`
	ProductID *uint           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// toCartLines converts wire items into cart lines
func toCartLines(items []cartItem) []cart.Line {
	lines := make([]cart.Line, 0, len(items))
	for _, item := range items {
		productID := item.ProductID
		if productID == nil {
			productID = item.ID
		}
		lines = append(lines, cart.Line{
			ProductID: productID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// addressPayload accepts both snake_case and camelCase postal code spellings
type addressPayload struct {
	Street          string `json:"street"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostalCode      string `json:"postal_code"`
	PostalCodeCamel string `json:"postalCode"`
	ZipCode         string `json:"zip"`
}

func (a *addressPayload) toAddress() *order.DeliveryAddress {
	if a == nil {
		return nil
	}
	postal := coalesce(a.PostalCode, a.PostalCodeCamel, a.ZipCode)
	if a.Street == "" && a.City == "" && a.State == "" && postal == "" {
		return nil
	}
	return &order.DeliveryAddress{
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: postal,
	}
}

// customerInfoPayload tolerates both snake_case and camelCase client
// payloads. Both spellings are declared side by side and coalesced into the
// one canonical checkout.CustomerInfo before any business logic runs.
type customerInfoPayload struct {
	OrderType      string `json:"order_type"`
	OrderTypeCamel string `json:"orderType"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	CustomerID      *uint `json:"customer_id"`
	CustomerIDCamel *uint `json:"customerId"`

	PickupDate      string `json:"pickup_date"`
	PickupDateCamel string `json:"pickupDate"`
	PickupTime      string `json:"pickup_time"`
	PickupTimeCamel string `json:"pickupTime"`

	DeliveryAddress      *addressPayload `json:"delivery_address"`
	DeliveryAddressCamel *addressPayload `json:"deliveryAddress"`

	Notes string `json:"notes"`

	PromoCode      string `json:"promo_code"`
	PromoCodeCamel string `json:"promoCode"`
}

// normalize maps the tolerant wire shape into the canonical CustomerInfo
func (p *customerInfoPayload) normalize() *checkout.CustomerInfo {
	if p == nil {
		return &checkout.CustomerInfo{}
	}

	customerID := p.CustomerID
	if customerID == nil {
		customerID = p.CustomerIDCamel
	}

	address := p.DeliveryAddress.toAddress()
	if address == nil {
		address = p.DeliveryAddressCamel.toAddress()
	}

	return &checkout.CustomerInfo{
		OrderType:       order.FulfillmentType(strings.ToLower(coalesce(p.OrderType, p.OrderTypeCamel))),
		Name:            strings.TrimSpace(p.Name),
		Email:           strings.TrimSpace(p.Email),
		Phone:           strings.TrimSpace(p.Phone),
		CustomerID:      customerID,
		PickupDate:      coalesce(p.PickupDate, p.PickupDateCamel),
		PickupTime:      coalesce(p.PickupTime, p.PickupTimeCamel),
		DeliveryAddress: address,
		Notes:           p.Notes,
		PromoCode:       strings.TrimSpace(coalesce(p.PromoCode, p.PromoCodeCamel)),
	}
}

// coalesce returns the first non-empty string
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
