// internal/domain/checkout/metadata.go
package checkout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// Metadata keys carried across the hosted-payment redirect. The gateway
// stores these verbatim and hands them back at confirmation time; it knows
// nothing about our order schema.
const (
	metaOrderType       = "order_type"
	metaCustomerID      = "customer_id"
	metaCustomerName    = "customer_name"
	metaCustomerEmail   = "customer_email"
	metaCustomerPhone   = "customer_phone"
	metaItems           = "items"
	metaPickupDate      = "pickup_date"
	metaPickupTime      = "pickup_time"
	metaDeliveryAddress = "delivery_address"
	metaNotes           = "notes"
	metaPromoCode       = "promo_code"
)

const (
	pickupDateLayout = "2006-01-02"
	pickupTimeLayout = "15:04"
)

// metaLine is the compact per-line serialization used inside the metadata
// bag. Field names are single characters because metadata values are
// size-constrained; very large carts would need a persistence-then-reference
// strategy instead.
type metaLine struct {
	ProductID *uint  `json:"i,omitempty"`
	Name      string `json:"n"`
	Quantity  int    `json:"q"`
	Price     string `json:"p"`
}

// PackMetadata serializes the order context into the gateway metadata bag
func PackMetadata(info *CustomerInfo, lines []cart.Line) (map[string]string, error) {
	compact := make([]metaLine, len(lines))
	for i, line := range lines {
		compact[i] = metaLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice.StringFixed(2),
		}
	}

	itemsJSON, err := json.Marshal(compact)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize cart for metadata: %w", err)
	}

	meta := map[string]string{
		metaOrderType:     string(info.OrderType),
		metaCustomerName:  info.Name,
		metaCustomerEmail: info.Email,
		metaItems:         string(itemsJSON),
	}

	if info.Phone != "" {
		meta[metaCustomerPhone] = info.Phone
	}
	if info.CustomerID != nil {
		meta[metaCustomerID] = strconv.FormatUint(uint64(*info.CustomerID), 10)
	}
	if info.Notes != "" {
		meta[metaNotes] = info.Notes
	}
	if info.PromoCode != "" {
		meta[metaPromoCode] = info.PromoCode
	}

	switch info.OrderType {
	case order.FulfillmentDelivery:
		if info.DeliveryAddress != nil {
			addrJSON, err := json.Marshal(info.DeliveryAddress)
			if err != nil {
				return nil, fmt.Errorf("failed to serialize delivery address: %w", err)
			}
			meta[metaDeliveryAddress] = string(addrJSON)
		}
	default:
		if info.PickupDate != "" {
			meta[metaPickupDate] = info.PickupDate
		}
		if info.PickupTime != "" {
			meta[metaPickupTime] = info.PickupTime
		}
	}

	return meta, nil
}

// UnpackCart recovers the cart lines from the metadata bag
func UnpackCart(meta map[string]string) ([]cart.Line, error) {
	raw, ok := meta[metaItems]
	if !ok || raw == "" {
		return nil, nil
	}

	var compact []metaLine
	if err := json.Unmarshal([]byte(raw), &compact); err != nil {
		return nil, fmt.Errorf("failed to parse cart metadata: %w", err)
	}

	lines := make([]cart.Line, len(compact))
	for i, item := range compact {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q in cart metadata: %w", item.Price, err)
		}
		lines[i] = cart.Line{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: price,
		}
	}

	return lines, nil
}

// UnpackCustomer recovers customer and fulfillment details from metadata
func UnpackCustomer(meta map[string]string) *CustomerInfo {
	info := &CustomerInfo{
		OrderType:  order.FulfillmentType(meta[metaOrderType]),
		Name:       meta[metaCustomerName],
		Email:      meta[metaCustomerEmail],
		Phone:      meta[metaCustomerPhone],
		PickupDate: meta[metaPickupDate],
		PickupTime: meta[metaPickupTime],
		Notes:      meta[metaNotes],
		PromoCode:  meta[metaPromoCode],
	}

	if raw, ok := meta[metaCustomerID]; ok && raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			customerID := uint(id)
			info.CustomerID = &customerID
		}
	}

	if raw, ok := meta[metaDeliveryAddress]; ok && raw != "" {
		var addr order.DeliveryAddress
		if err := json.Unmarshal([]byte(raw), &addr); err == nil {
			info.DeliveryAddress = &addr
		}
	}

	return info
}

// ParsePickupTime combines the pickup date and time metadata fields into a
// timestamp; it returns nil unless both are present and well-formed.
func ParsePickupTime(date, clock string) *time.Time {
	if date == "" || clock == "" {
		return nil
	}
	t, err := time.Parse(pickupDateLayout+" "+pickupTimeLayout, date+" "+clock)
	if err != nil {
		return nil
	}
	return &t
}
