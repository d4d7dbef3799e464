package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusDelivered OrderStatus = "delivered"
)

// IsKnown reports whether s is a status the order backend can report for an
// accepted order. A replayed idempotency key may return any of them.
func (s OrderStatus) IsKnown() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusDelivered:
		return true
	}
	return false
}

const PaymentCashOnDelivery = "cash_on_delivery"

// OrderRequest is the snapshot sent to the order backend. Fields are
// unexported so a built request cannot be changed afterwards.
type OrderRequest struct {
	idempotencyKey  string
	userID          string
	vendorID        string
	vendorName      string
	items           []LineItem
	deliveryAddress Address
	subtotal        decimal.Decimal
	deliveryFee     decimal.Decimal
	totalAmount     decimal.Decimal
}

func NewOrderRequest(
	idempotencyKey, userID, vendorID, vendorName string,
	items []LineItem,
	address Address,
	subtotal, deliveryFee decimal.Decimal,
) OrderRequest {
	return OrderRequest{
		idempotencyKey:  idempotencyKey,
		userID:          userID,
		vendorID:        vendorID,
		vendorName:      vendorName,
		items:           CloneItems(items),
		deliveryAddress: cloneAddress(address),
		subtotal:        subtotal,
		deliveryFee:     deliveryFee,
		totalAmount:     subtotal.Add(deliveryFee),
	}
}

func (r OrderRequest) IdempotencyKey() string { return r.idempotencyKey }
func (r OrderRequest) UserID() string { return r.userID }
func (r OrderRequest) VendorID() string { return r.vendorID }
func (r OrderRequest) VendorName() string { return r.vendorName }
func (r OrderRequest) Items() []LineItem { return CloneItems(r.items) }
func (r OrderRequest) DeliveryAddress() Address { return cloneAddress(r.deliveryAddress) }
func (r OrderRequest) Subtotal() decimal.Decimal { return r.subtotal }
func (r OrderRequest) DeliveryFee() decimal.Decimal { return r.deliveryFee }
func (r OrderRequest) TotalAmount() decimal.Decimal { return r.totalAmount }
func (r OrderRequest) PaymentMethod() string { return PaymentCashOnDelivery }

func (r OrderRequest) ItemCount() int {
	n := 0
	for _, item := range r.items {
		n += item.Quantity
	}
	return n
}

type Order struct {
	ID          string          `json:"id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OrderPlacedEvent is published to Kafka once an order is stored.
type OrderPlacedEvent struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	VendorID    string          `json:"vendor_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	PlacedAt    time.Time       `json:"placed_at"`
}

const EventTypeOrderPlaced = "order.placed"

func cloneAddress(a Address) Address {
	if a.Coordinates != nil {
		c := *a.Coordinates
		a.Coordinates = &c
	}
	return a
}
