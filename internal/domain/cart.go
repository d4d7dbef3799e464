package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AddOutcome int

const (
	Added AddOutcome = iota
	NeedsVendorSwitchConfirmation
)

func (o AddOutcome) String() string {
	switch o {
	case Added:
		return "ADDED"
	case NeedsVendorSwitchConfirmation:
		return "NEEDS_VENDOR_SWITCH_CONFIRMATION"
	default:
		return "UNKNOWN"
	}
}

// LineItem is one dish in a vendor cart. ItemID is unique within a vendor.
type LineItem struct {
	ItemID      string          `json:"item_id"`
	DisplayName string          `json:"display_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	VendorID    string          `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type VendorCart struct {
	VendorID   string     `json:"vendor_id"`
	VendorName string     `json:"vendor_name"`
	Items      []LineItem `json:"items"`
}

// CartState is the persisted form of a user's cart partitions.
type CartState struct {
	UserID         string       `json:"user_id"`
	ActiveVendorID string       `json:"active_vendor_id,omitempty"`
	Carts          []VendorCart `json:"carts"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
