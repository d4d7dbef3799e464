package cart

import (
	"fmt"

	d "github.com/fjod/cookcart/internal/domain"
)

// SwitchResolver gates adds from a second vendor behind an explicit
// confirmation. The pending item is kept until it is confirmed or cancelled.
type SwitchResolver struct {
	store   *Store
	pending *d.LineItem
}

func NewSwitchResolver(store *Store) *SwitchResolver {
	return &SwitchResolver{store: store}
}

// HasConflict reports whether adding from targetVendorID would discard
// another vendor's non-empty cart.
func (r *SwitchResolver) HasConflict(targetVendorID string) bool {
	return r.store.hasConflict(targetVendorID)
}

// Add tries the add and remembers the item when confirmation is required.
func (r *SwitchResolver) Add(item d.LineItem) (d.AddOutcome, error) {
	outcome, err := r.store.AddItem(item)
	if err != nil {
		return outcome, err
	}
	if outcome == d.NeedsVendorSwitchConfirmation {
		pending := item
		r.pending = &pending
		return outcome, nil
	}
	r.pending = nil
	return outcome, nil
}

func (r *SwitchResolver) Pending() (d.LineItem, bool) {
	if r.pending == nil {
		return d.LineItem{}, false
	}
	return *r.pending, true
}

// ConfirmSwitch drops every existing cart and adds pendingItem for the new
// vendor, which becomes active.
func (r *SwitchResolver) ConfirmSwitch(targetVendorID string, pendingItem d.LineItem) error {
	if pendingItem.VendorID != targetVendorID {
		return fmt.Errorf("%w: item vendor %s, target %s", ErrVendorMismatch, pendingItem.VendorID, targetVendorID)
	}
	if err := validateItem(pendingItem); err != nil {
		return err
	}

	r.store.ClearAll()
	if _, err := r.store.AddItem(pendingItem); err != nil {
		return err
	}
	r.pending = nil
	return nil
}

func (r *SwitchResolver) ConfirmPending() error {
	if r.pending == nil {
		return ErrNoPendingSwitch
	}
	return r.ConfirmSwitch(r.pending.VendorID, *r.pending)
}

func (r *SwitchResolver) CancelSwitch() {
	r.pending = nil
}
