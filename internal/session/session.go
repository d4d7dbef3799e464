package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/cookcart/internal/address"
	"github.com/fjod/cookcart/internal/cart"
	"github.com/fjod/cookcart/internal/checkout"
	d "github.com/fjod/cookcart/internal/domain"
	"github.com/fjod/cookcart/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNoCheckout = errors.New("no checkout in progress")

// CartPersister loads and stores the cart state of a user.
type CartPersister interface {
	GetCart(ctx context.Context, userID string) (*d.CartState, error)
	SaveCart(ctx context.Context, state *d.CartState) error
}

// CartView is the cart as shown to the user.
type CartView struct {
	VendorID      string          `json:"vendor_id,omitempty"`
	VendorName    string          `json:"vendor_name,omitempty"`
	Items         []d.LineItem    `json:"items"`
	ItemCount     int             `json:"item_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	PendingSwitch *d.LineItem     `json:"pending_switch,omitempty"`
}

// CheckoutView combines the workflow state with its address step.
type CheckoutView struct {
	d.CheckoutSession
	AddressStep checkout.AddressStep `json:"address_step"`
	Closed      bool                 `json:"closed"`
}

type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// UserSession owns the cart and checkout of one user. Events are serialised
// by mu; network calls run with mu released.
type UserSession struct {
	userID    string
	book      *address.Book
	submitter *order.Submitter
	persister CartPersister
	fee       decimal.Decimal
	logger    *zap.Logger

	mu       sync.Mutex
	store    *cart.Store
	resolver *cart.SwitchResolver
	checkout *checkout.Workflow
	calls    map[string]inflight
	seq      uint64
	version  uint64

	persistMu sync.Mutex
	persisted uint64

	// lastUsed is guarded by the Manager's mutex.
	lastUsed time.Time
}

func (s *UserSession) UserID() string { return s.userID }

func (s *UserSession) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartView()
}

func (s *UserSession) AddItem(ctx context.Context, item d.LineItem) (d.AddOutcome, CartView, error) {
	s.mu.Lock()
	outcome, err := s.resolver.Add(item)
	if err != nil || outcome != d.Added {
		view := s.cartView()
		s.mu.Unlock()
		return outcome, view, err
	}
	view, v, state := s.changed()
	s.mu.Unlock()

	_ = s.persist(ctx, v, state)
	return outcome, view, nil
}

func (s *UserSession) RemoveItem(ctx context.Context, itemID string) CartView {
	return s.mutate(ctx, func() { s.store.RemoveItem(itemID) })
}

func (s *UserSession) SetQuantity(ctx context.Context, itemID string, quantity int) CartView {
	return s.mutate(ctx, func() { s.store.SetQuantity(itemID, quantity) })
}

func (s *UserSession) ClearCart(ctx context.Context) CartView {
	return s.mutate(ctx, func() {
		s.store.ClearActiveCart()
		s.resolver.CancelSwitch()
	})
}

func (s *UserSession) ConfirmSwitch(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	if err := s.resolver.ConfirmPending(); err != nil {
		view := s.cartView()
		s.mu.Unlock()
		return view, err
	}
	view, v, state := s.changed()
	s.mu.Unlock()

	s.logger.Info("vendor switched", zap.String("user_id", s.userID), zap.String("vendor_id", view.VendorID))
	_ = s.persist(ctx, v, state)
	return view, nil
}

func (s *UserSession) CancelSwitch() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver.CancelSwitch()
	return s.cartView()
}

// StartCheckout opens a checkout, reusing one that is still open.
func (s *UserSession) StartCheckout() CheckoutView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil || s.checkout.Closed() {
		s.abortInFlight()
		s.checkout = checkout.New(s.userID, s.store, s.book, s.submitter,
			checkout.WithDeliveryFee(s.fee), checkout.WithLogger(s.logger))
	}
	return s.checkoutView()
}

func (s *UserSession) Checkout() (CheckoutView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil {
		return CheckoutView{}, ErrNoCheckout
	}
	return s.checkoutView(), nil
}

func (s *UserSession) Proceed() (CheckoutView, error) {
	return s.step(false, (*checkout.Workflow).Proceed)
}

func (s *UserSession) Back() (CheckoutView, error) {
	return s.step(true, (*checkout.Workflow).Back)
}

func (s *UserSession) ChangeAddress() (CheckoutView, error) {
	return s.step(true, (*checkout.Workflow).ChangeAddress)
}

func (s *UserSession) ConfirmAddress(id string) (CheckoutView, error) {
	return s.step(false, func(w *checkout.Workflow) error { return w.ConfirmAddress(id) })
}

func (s *UserSession) CancelCheckout() (CheckoutView, error) {
	return s.step(true, (*checkout.Workflow).Cancel)
}

func (s *UserSession) ContinueShopping() (CheckoutView, error) {
	return s.step(false, (*checkout.Workflow).ContinueShopping)
}

// LoadAddresses fetches the address list outside the event lock. A fetch
// failure still returns a usable view along with the error.
func (s *UserSession) LoadAddresses(ctx context.Context) (CheckoutView, error) {
	s.mu.Lock()
	wf, err := s.current()
	if err != nil {
		s.mu.Unlock()
		return CheckoutView{}, err
	}
	t, err := wf.BeginAddressLoad()
	if err != nil {
		view := s.checkoutView()
		s.mu.Unlock()
		return view, err
	}
	callCtx, done := s.track(ctx, "addresses")
	s.mu.Unlock()

	addresses, fetchErr := s.book.List(callCtx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if done() {
		return s.checkoutView(), checkout.ErrStaleResponse
	}
	_, err = wf.FinishAddressLoad(t, addresses, fetchErr)
	return s.checkoutView(), err
}

func (s *UserSession) SaveAddress(ctx context.Context, input d.AddressInput) (*d.Address, CheckoutView, error) {
	s.mu.Lock()
	wf, err := s.current()
	if err != nil {
		s.mu.Unlock()
		return nil, CheckoutView{}, err
	}
	t, input, err := wf.BeginSaveAddress(input)
	if err != nil {
		view := s.checkoutView()
		s.mu.Unlock()
		return nil, view, err
	}
	callCtx, done := s.track(ctx, "save-address")
	s.mu.Unlock()

	saved, saveErr := s.book.Save(callCtx, s.userID, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	if done() {
		return nil, s.checkoutView(), checkout.ErrStaleResponse
	}
	saved, err = wf.FinishSaveAddress(t, saved, saveErr)
	return saved, s.checkoutView(), err
}

// PlaceOrder snapshots the cart under the lock and submits it without it.
func (s *UserSession) PlaceOrder(ctx context.Context) (*d.Order, CheckoutView, error) {
	s.mu.Lock()
	wf, err := s.current()
	if err != nil {
		s.mu.Unlock()
		return nil, CheckoutView{}, err
	}
	t, req, err := wf.BeginPlaceOrder()
	if err != nil {
		view := s.checkoutView()
		s.mu.Unlock()
		return nil, view, err
	}
	callCtx, done := s.track(ctx, "order")
	s.mu.Unlock()

	placed, submitErr := s.submitter.Submit(callCtx, req)

	s.mu.Lock()
	done()
	placed, err = wf.FinishPlaceOrder(t, placed, submitErr)
	view := s.checkoutView()
	if err != nil {
		s.mu.Unlock()
		return nil, view, err
	}
	_, v, state := s.changed()
	s.mu.Unlock()

	_ = s.persist(ctx, v, state)
	return placed, view, nil
}

func (s *UserSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortInFlight()
	if s.checkout != nil && !s.checkout.Closed() && !s.checkout.Stage().IsTerminal() {
		_ = s.checkout.Cancel()
	}
}

func (s *UserSession) mutate(ctx context.Context, fn func()) CartView {
	s.mu.Lock()
	fn()
	view, v, state := s.changed()
	s.mu.Unlock()

	_ = s.persist(ctx, v, state)
	return view
}

func (s *UserSession) step(navigatesAway bool, fn func(*checkout.Workflow) error) (CheckoutView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, err := s.current()
	if err != nil {
		return CheckoutView{}, err
	}
	if err := fn(wf); err != nil {
		return s.checkoutView(), err
	}
	if navigatesAway {
		s.abortInFlight()
	}
	return s.checkoutView(), nil
}

func (s *UserSession) current() (*checkout.Workflow, error) {
	if s.checkout == nil {
		return nil, ErrNoCheckout
	}
	return s.checkout, nil
}

// track derives the context for a network call of the given kind, replacing
// an older call of the same kind. Navigating away cancels every call. The
// returned done must be called with mu held once the call returns; it
// reports whether the call was cancelled by the session rather than by ctx.
func (s *UserSession) track(ctx context.Context, kind string) (context.Context, func() bool) {
	if c, ok := s.calls[kind]; ok {
		c.cancel()
	}
	callCtx, cancel := context.WithCancel(ctx)
	s.seq++
	id := s.seq
	s.calls[kind] = inflight{id: id, cancel: cancel}

	return callCtx, func() bool {
		superseded := callCtx.Err() != nil && ctx.Err() == nil
		cancel()
		if c, ok := s.calls[kind]; ok && c.id == id {
			delete(s.calls, kind)
		}
		return superseded
	}
}

func (s *UserSession) abortInFlight() {
	for kind, c := range s.calls {
		c.cancel()
		delete(s.calls, kind)
	}
}

// changed must be called with mu held.
func (s *UserSession) changed() (CartView, uint64, d.CartState) {
	s.version++
	return s.cartView(), s.version, s.store.Snapshot(s.userID)
}

// persist writes state unless a newer version has already been written.
func (s *UserSession) persist(ctx context.Context, version uint64, state d.CartState) error {
	if s.persister == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if version <= s.persisted {
		return nil
	}
	if err := s.persister.SaveCart(context.WithoutCancel(ctx), &state); err != nil {
		s.logger.Error("failed to persist cart", zap.String("user_id", s.userID), zap.Uint64("version", version), zap.Error(err))
		return err
	}
	s.persisted = version
	return nil
}

// busy reports whether a network call is still running.
func (s *UserSession) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls) > 0
}

// flush writes the latest cart version if an earlier write failed.
func (s *UserSession) flush(ctx context.Context) error {
	s.mu.Lock()
	v, state := s.version, s.store.Snapshot(s.userID)
	s.mu.Unlock()
	return s.persist(ctx, v, state)
}

func (s *UserSession) cartView() CartView {
	view := CartView{
		Items:     s.store.Items(),
		ItemCount: s.store.TotalItemCount(),
		Subtotal:  s.store.TotalAmount(),
	}
	view.VendorID, view.VendorName, _ = s.store.ActiveVendor()
	if pending, ok := s.resolver.Pending(); ok {
		view.PendingSwitch = &pending
	}
	return view
}

func (s *UserSession) checkoutView() CheckoutView {
	return CheckoutView{
		CheckoutSession: s.checkout.Session(),
		AddressStep:     s.checkout.AddressStep(),
		Closed:          s.checkout.Closed(),
	}
}
