package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/cookcart/internal/cart"
	d "github.com/fjod/cookcart/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrder     = errors.New("order submission failed")
	ErrEmptyCart = errors.New("cart is empty")
)

// Placer stores an order. Implementations must treat the request
// idempotency key as unique.
type Placer interface {
	PlaceOrder(ctx context.Context, req d.OrderRequest) (*d.Order, error)
}

type Submitter struct {
	placer Placer
}

func NewSubmitter(placer Placer) *Submitter {
	return &Submitter{placer: placer}
}

// Build snapshots the active cart into an order request. An empty key
// mints a new one.
func (s *Submitter) Build(userID string, store *cart.Store, address d.Address, deliveryFee decimal.Decimal, key string) (d.OrderRequest, error) {
	vendorID, vendorName, ok := store.ActiveVendor()
	if !ok || store.IsEmpty() {
		return d.OrderRequest{}, ErrEmptyCart
	}
	if key == "" {
		key = uuid.NewString()
	}
	return d.NewOrderRequest(key, userID, vendorID, vendorName, store.Items(), address, store.TotalAmount(), deliveryFee), nil
}

func (s *Submitter) Submit(ctx context.Context, req d.OrderRequest) (*d.Order, error) {
	placed, err := s.placer.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrder, err)
	}
	if placed == nil || placed.ID == "" {
		return nil, fmt.Errorf("%w: response carries no order id", ErrOrder)
	}
	if !placed.Status.IsKnown() {
		return nil, fmt.Errorf("%w: unexpected status %q", ErrOrder, placed.Status)
	}
	return placed, nil
}
