package domain

import "github.com/shopspring/decimal"

type Stage string

const (
	StageCart         Stage = "cart"
	StageAddress      Stage = "address"
	StagePayment      Stage = "payment"
	StageConfirmation Stage = "confirmation"
)

func (s Stage) IsTerminal() bool {
	return s == StageConfirmation
}

func (s Stage) String() string {
	return string(s)
}

var allowedTransitions = map[Stage][]Stage{
	StageCart:    {StageAddress},
	StageAddress: {StagePayment, StageCart},
	StagePayment: {StageConfirmation, StageAddress},
}

func CanTransitionTo(from, to Stage) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckoutSession is a read-only view of one pass through checkout.
type CheckoutSession struct {
	Stage           Stage           `json:"stage"`
	SelectedAddress *Address        `json:"selected_address,omitempty"`
	PlacedOrderID   string          `json:"placed_order_id,omitempty"`
	ItemCount       int             `json:"item_count"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Total           decimal.Decimal `json:"total"`
	OrderInFlight   bool            `json:"order_in_flight"`
}
