package checkout

import (
	"context"
	"fmt"

	"github.com/fjod/cookcart/internal/address"
	"github.com/fjod/cookcart/internal/cart"
	d "github.com/fjod/cookcart/internal/domain"
	"github.com/fjod/cookcart/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var DefaultDeliveryFee = decimal.NewFromInt(30)

// Ticket identifies the step a network call was started from. A Finish call
// with a ticket from an older step is ignored.
type Ticket struct {
	epoch uint64
	stage d.Stage
}

func (t Ticket) Stage() d.Stage { return t.stage }

// AddressStep is what the address stage shows.
type AddressStep struct {
	Addresses     []d.Address `json:"addresses"`
	Candidate     *d.Address  `json:"candidate,omitempty"`
	EntryRequired bool        `json:"entry_required"`
	Loaded        bool        `json:"loaded"`
}

// Workflow walks one checkout attempt through cart, address, payment and
// confirmation. It is not safe for concurrent use.
type Workflow struct {
	userID    string
	store     *cart.Store
	book      *address.Book
	submitter *order.Submitter
	fee       decimal.Decimal
	logger    *zap.Logger

	stage  d.Stage
	closed bool
	epoch  uint64

	step     AddressStep
	selected *d.Address

	placedOrderID string
	inFlight      bool

	lastKey         string
	lastFingerprint uint64
}

type Option func(*Workflow)

func WithDeliveryFee(fee decimal.Decimal) Option {
	return func(w *Workflow) { w.fee = fee }
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func New(userID string, store *cart.Store, book *address.Book, submitter *order.Submitter, opts ...Option) *Workflow {
	w := &Workflow{
		userID:    userID,
		store:     store,
		book:      book,
		submitter: submitter,
		fee:       DefaultDeliveryFee,
		logger:    zap.NewNop(),
		stage:     d.StageCart,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) Stage() d.Stage { return w.stage }

func (w *Workflow) Closed() bool { return w.closed }

// Proceed moves from cart review to address selection.
func (w *Workflow) Proceed() error {
	if err := w.expect(d.StageCart); err != nil {
		return err
	}
	if w.store.IsEmpty() {
		return ErrEmptyCart
	}
	w.step = AddressStep{Addresses: []d.Address{}}
	return w.moveTo(d.StageAddress)
}

func (w *Workflow) BeginAddressLoad() (Ticket, error) {
	if err := w.expect(d.StageAddress); err != nil {
		return Ticket{}, err
	}
	return w.ticket(), nil
}

// FinishAddressLoad applies a listing result. A fetch error switches the step
// into entry mode and is returned as a notice; the step stays usable.
func (w *Workflow) FinishAddressLoad(t Ticket, addresses []d.Address, fetchErr error) (AddressStep, error) {
	if err := w.current(t); err != nil {
		return AddressStep{}, err
	}

	w.step.Loaded = true
	if fetchErr != nil {
		w.step.Addresses = []d.Address{}
		w.step.Candidate = nil
		w.step.EntryRequired = true
		w.logger.Warn("address list unavailable, falling back to entry",
			zap.String("user_id", w.userID), zap.Error(fetchErr))
		return w.AddressStep(), fetchErr
	}

	w.step.Addresses = append([]d.Address{}, addresses...)
	w.step.EntryRequired = len(addresses) == 0
	w.step.Candidate = nil
	if def, ok := address.DefaultAddress(addresses); ok {
		w.step.Candidate = &def
	}
	return w.AddressStep(), nil
}

// LoadAddresses lists the user's addresses and pre-selects the default.
func (w *Workflow) LoadAddresses(ctx context.Context) (AddressStep, error) {
	t, err := w.BeginAddressLoad()
	if err != nil {
		return AddressStep{}, err
	}
	addresses, fetchErr := w.book.List(ctx, w.userID)
	return w.FinishAddressLoad(t, addresses, fetchErr)
}

// BeginSaveAddress validates input before any network call is made.
func (w *Workflow) BeginSaveAddress(input d.AddressInput) (Ticket, d.AddressInput, error) {
	if err := w.expect(d.StageAddress); err != nil {
		return Ticket{}, input, err
	}
	input, err := w.book.Validate(input)
	if err != nil {
		return Ticket{}, input, err
	}
	return w.ticket(), input, nil
}

func (w *Workflow) FinishSaveAddress(t Ticket, saved *d.Address, saveErr error) (*d.Address, error) {
	if err := w.current(t); err != nil {
		return nil, err
	}
	if saveErr != nil {
		return nil, saveErr
	}

	a := *saved
	if a.IsDefault {
		for i := range w.step.Addresses {
			w.step.Addresses[i].IsDefault = false
		}
	}
	w.step.Addresses = append(w.step.Addresses, a)
	w.step.Candidate = &a
	w.step.EntryRequired = false

	w.logger.Info("address saved",
		zap.String("user_id", w.userID), zap.String("address_id", a.ID), zap.Bool("default", a.IsDefault))
	return &a, nil
}

func (w *Workflow) SaveAddress(ctx context.Context, input d.AddressInput) (*d.Address, error) {
	t, input, err := w.BeginSaveAddress(input)
	if err != nil {
		return nil, err
	}
	saved, saveErr := w.book.Save(ctx, w.userID, input)
	return w.FinishSaveAddress(t, saved, saveErr)
}

// ChooseAddress selects a and moves on to payment.
func (w *Workflow) ChooseAddress(a d.Address) error {
	if err := w.expect(d.StageAddress); err != nil {
		return err
	}
	if a.ID == "" {
		return ErrNoAddressSelected
	}
	w.selected = &a
	w.step.Candidate = &a
	return w.moveTo(d.StagePayment)
}

// ConfirmAddress selects an address from the step by id. An empty id
// confirms the pre-selected candidate.
func (w *Workflow) ConfirmAddress(id string) error {
	if err := w.expect(d.StageAddress); err != nil {
		return err
	}
	if id == "" {
		if w.step.Candidate == nil {
			return ErrNoAddressSelected
		}
		return w.ChooseAddress(*w.step.Candidate)
	}
	for _, a := range w.step.Addresses {
		if a.ID == id {
			return w.ChooseAddress(a)
		}
	}
	return fmt.Errorf("%w: unknown address %s", ErrNoAddressSelected, id)
}

func (w *Workflow) ChangeAddress() error {
	if err := w.expect(d.StagePayment); err != nil {
		return err
	}
	w.inFlight = false
	return w.moveTo(d.StageAddress)
}

func (w *Workflow) Back() error {
	if w.closed {
		return ErrSessionClosed
	}
	switch w.stage {
	case d.StageAddress:
		return w.moveTo(d.StageCart)
	case d.StagePayment:
		w.inFlight = false
		return w.moveTo(d.StageAddress)
	default:
		return fmt.Errorf("%w: cannot go back from %s", ErrIllegalTransition, w.stage)
	}
}

// BeginPlaceOrder snapshots the cart into an order request and marks a
// submission in flight. A retry with unchanged content keeps the previous
// idempotency key.
func (w *Workflow) BeginPlaceOrder() (Ticket, d.OrderRequest, error) {
	if err := w.expect(d.StagePayment); err != nil {
		return Ticket{}, d.OrderRequest{}, err
	}
	if w.inFlight {
		return Ticket{}, d.OrderRequest{}, ErrOrderInFlight
	}
	if w.selected == nil {
		return Ticket{}, d.OrderRequest{}, ErrNoAddressSelected
	}
	if w.store.IsEmpty() {
		return Ticket{}, d.OrderRequest{}, ErrEmptyCart
	}

	fp := fingerprint(w.store, *w.selected, w.fee)
	key := ""
	if w.lastKey != "" && fp == w.lastFingerprint {
		key = w.lastKey
	}
	req, err := w.submitter.Build(w.userID, w.store, *w.selected, w.fee, key)
	if err != nil {
		return Ticket{}, d.OrderRequest{}, err
	}

	w.lastKey = req.IdempotencyKey()
	w.lastFingerprint = fp
	w.inFlight = true
	return w.ticket(), req, nil
}

// FinishPlaceOrder applies a submission result. On failure the workflow stays
// in payment with cart and address intact.
func (w *Workflow) FinishPlaceOrder(t Ticket, placed *d.Order, submitErr error) (*d.Order, error) {
	if err := w.current(t); err != nil {
		return nil, err
	}
	w.inFlight = false

	if submitErr == nil && (placed == nil || placed.ID == "") {
		submitErr = fmt.Errorf("%w: response carries no order id", order.ErrOrder)
	}
	if submitErr != nil {
		w.logger.Warn("order submission failed",
			zap.String("user_id", w.userID), zap.String("idempotency_key", w.lastKey), zap.Error(submitErr))
		return nil, submitErr
	}

	w.placedOrderID = placed.ID
	w.store.ClearActiveCart()
	w.lastKey = ""
	if err := w.moveTo(d.StageConfirmation); err != nil {
		return nil, err
	}

	w.logger.Info("order placed",
		zap.String("user_id", w.userID), zap.String("order_id", placed.ID), zap.String("total", placed.TotalAmount.StringFixed(2)))
	return placed, nil
}

func (w *Workflow) PlaceOrder(ctx context.Context) (*d.Order, error) {
	t, req, err := w.BeginPlaceOrder()
	if err != nil {
		return nil, err
	}
	placed, submitErr := w.submitter.Submit(ctx, req)
	return w.FinishPlaceOrder(t, placed, submitErr)
}

// Cancel abandons checkout. The cart is left as it is.
func (w *Workflow) Cancel() error {
	if w.closed {
		return ErrSessionClosed
	}
	if w.stage.IsTerminal() {
		return fmt.Errorf("%w: order already placed", ErrIllegalTransition)
	}
	w.close("cancelled")
	return nil
}

func (w *Workflow) ContinueShopping() error {
	if err := w.expect(d.StageConfirmation); err != nil {
		return err
	}
	w.close("completed")
	return nil
}

func (w *Workflow) Totals() (subtotal, fee, total decimal.Decimal) {
	subtotal = w.store.TotalAmount()
	return subtotal, w.fee, subtotal.Add(w.fee)
}

func (w *Workflow) Session() d.CheckoutSession {
	subtotal, fee, total := w.Totals()
	s := d.CheckoutSession{
		Stage:         w.stage,
		PlacedOrderID: w.placedOrderID,
		ItemCount:     w.store.TotalItemCount(),
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		Total:         total,
		OrderInFlight: w.inFlight,
	}
	if w.selected != nil {
		a := *w.selected
		s.SelectedAddress = &a
	}
	return s
}

func (w *Workflow) AddressStep() AddressStep {
	step := AddressStep{
		Addresses:     append([]d.Address{}, w.step.Addresses...),
		EntryRequired: w.step.EntryRequired,
		Loaded:        w.step.Loaded,
	}
	if w.step.Candidate != nil {
		c := *w.step.Candidate
		step.Candidate = &c
	}
	return step
}

func (w *Workflow) expect(stage d.Stage) error {
	if w.closed {
		return ErrSessionClosed
	}
	if w.stage != stage {
		return fmt.Errorf("%w: in %s, want %s", ErrIllegalTransition, w.stage, stage)
	}
	return nil
}

func (w *Workflow) current(t Ticket) error {
	if t.epoch != w.epoch || t.stage != w.stage {
		return ErrStaleResponse
	}
	if w.closed {
		return ErrSessionClosed
	}
	return nil
}

func (w *Workflow) ticket() Ticket {
	return Ticket{epoch: w.epoch, stage: w.stage}
}

func (w *Workflow) moveTo(next d.Stage) error {
	if !d.CanTransitionTo(w.stage, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, w.stage, next)
	}
	w.logger.Debug("checkout stage changed",
		zap.String("user_id", w.userID), zap.Stringer("from", w.stage), zap.Stringer("to", next))
	w.stage = next
	w.epoch++
	return nil
}

func (w *Workflow) close(reason string) {
	w.closed = true
	w.inFlight = false
	w.epoch++
	w.logger.Info("checkout closed",
		zap.String("user_id", w.userID), zap.String("reason", reason), zap.Stringer("stage", w.stage))
}
