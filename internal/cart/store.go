package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrVendorMismatch  = errors.New("pending item does not belong to target vendor")
	ErrNoPendingSwitch = errors.New("no vendor switch is pending")
	ErrInvalidState    = errors.New("invalid cart state")
)

// Store owns the per-vendor cart partitions of one user session.
// At most one partition is active; every read goes through the active one.
// Store is not safe for concurrent use, callers serialise events.
type Store struct {
	partitions map[string]*d.VendorCart
	active     string
}

func NewStore() *Store {
	return &Store{partitions: make(map[string]*d.VendorCart)}
}

func (s *Store) activeCart() *d.VendorCart {
	if s.active == "" {
		return nil
	}
	return s.partitions[s.active]
}

// AddItem merges item into the active cart. A non-empty cart from another
// vendor is left untouched and NeedsVendorSwitchConfirmation is returned.
func (s *Store) AddItem(item d.LineItem) (d.AddOutcome, error) {
	if err := validateItem(item); err != nil {
		return d.Added, err
	}

	if s.hasConflict(item.VendorID) {
		return d.NeedsVendorSwitchConfirmation, nil
	}

	vc, ok := s.partitions[item.VendorID]
	if !ok {
		vc = &d.VendorCart{VendorID: item.VendorID, VendorName: item.VendorName}
		s.partitions[item.VendorID] = vc
	}
	s.active = item.VendorID

	for i := range vc.Items {
		if vc.Items[i].ItemID == item.ItemID {
			vc.Items[i].Quantity++
			return d.Added, nil
		}
	}

	item.Quantity = 1
	vc.Items = append(vc.Items, item)
	return d.Added, nil
}

func (s *Store) RemoveItem(itemID string) {
	vc := s.activeCart()
	if vc == nil {
		return
	}
	for i := range vc.Items {
		if vc.Items[i].ItemID == itemID {
			vc.Items = append(vc.Items[:i:i], vc.Items[i+1:]...)
			return
		}
	}
}

// SetQuantity with quantity <= 0 removes the line.
func (s *Store) SetQuantity(itemID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(itemID)
		return
	}
	vc := s.activeCart()
	if vc == nil {
		return
	}
	for i := range vc.Items {
		if vc.Items[i].ItemID == itemID {
			vc.Items[i].Quantity = quantity
			return
		}
	}
}

// ClearActiveCart empties the active cart but keeps the vendor active.
func (s *Store) ClearActiveCart() {
	if vc := s.activeCart(); vc != nil {
		vc.Items = nil
	}
}

func (s *Store) ClearAll() {
	s.partitions = make(map[string]*d.VendorCart)
	s.active = ""
}

func (s *Store) ActiveVendor() (id, name string, ok bool) {
	vc := s.activeCart()
	if vc == nil {
		return "", "", false
	}
	return vc.VendorID, vc.VendorName, true
}

// Items returns a copy of the active cart lines in insertion order.
func (s *Store) Items() []d.LineItem {
	vc := s.activeCart()
	if vc == nil {
		return []d.LineItem{}
	}
	items := d.CloneItems(vc.Items)
	if items == nil {
		return []d.LineItem{}
	}
	return items
}

func (s *Store) IsEmpty() bool {
	vc := s.activeCart()
	return vc == nil || len(vc.Items) == 0
}

func (s *Store) TotalItemCount() int {
	total := 0
	if vc := s.activeCart(); vc != nil {
		for _, item := range vc.Items {
			total += item.Quantity
		}
	}
	return total
}

func (s *Store) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	if vc := s.activeCart(); vc != nil {
		for _, item := range vc.Items {
			total = total.Add(item.Subtotal())
		}
	}
	return total
}

func (s *Store) hasConflict(vendorID string) bool {
	vc := s.activeCart()
	return vc != nil && vc.VendorID != vendorID && len(vc.Items) > 0
}

// Snapshot exports the partitions for persistence by the host.
func (s *Store) Snapshot(userID string) d.CartState {
	state := d.CartState{
		UserID:         userID,
		ActiveVendorID: s.active,
		Carts:          make([]d.VendorCart, 0, len(s.partitions)),
		UpdatedAt:      time.Now().UTC(),
	}
	if vc := s.activeCart(); vc != nil {
		state.Carts = append(state.Carts, cloneCart(vc))
	}
	for id, vc := range s.partitions {
		if id == s.active {
			continue
		}
		state.Carts = append(state.Carts, cloneCart(vc))
	}
	return state
}

// Restore replaces the store contents with a previously taken snapshot.
func (s *Store) Restore(state d.CartState) error {
	partitions := make(map[string]*d.VendorCart, len(state.Carts))
	for _, vc := range state.Carts {
		if _, dup := partitions[vc.VendorID]; dup {
			return fmt.Errorf("%w: duplicate cart for vendor %s", ErrInvalidState, vc.VendorID)
		}
		ids := make(map[string]struct{}, len(vc.Items))
		for _, item := range vc.Items {
			if item.VendorID != vc.VendorID || item.Quantity < 1 {
				return fmt.Errorf("%w: vendor %s", ErrInvalidState, vc.VendorID)
			}
			if _, dup := ids[item.ItemID]; dup {
				return fmt.Errorf("%w: duplicate item %s in vendor %s", ErrInvalidState, item.ItemID, vc.VendorID)
			}
			ids[item.ItemID] = struct{}{}
		}
		c := cloneCart(&vc)
		partitions[vc.VendorID] = &c
	}
	if state.ActiveVendorID != "" {
		if _, ok := partitions[state.ActiveVendorID]; !ok {
			return fmt.Errorf("%w: active vendor %s has no cart", ErrInvalidState, state.ActiveVendorID)
		}
	}
	s.partitions = partitions
	s.active = state.ActiveVendorID
	return nil
}

func cloneCart(vc *d.VendorCart) d.VendorCart {
	return d.VendorCart{
		VendorID:   vc.VendorID,
		VendorName: vc.VendorName,
		Items:      d.CloneItems(vc.Items),
	}
}

func validateItem(item d.LineItem) error {
	if strings.TrimSpace(item.ItemID) == "" {
		return fmt.Errorf("%w: item_id is required", ErrInvalidItem)
	}
	if strings.TrimSpace(item.VendorID) == "" {
		return fmt.Errorf("%w: vendor_id is required", ErrInvalidItem)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit_price must not be negative", ErrInvalidItem)
	}
	return nil
}
