package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/cookcart/internal/address"
	d "github.com/fjod/cookcart/internal/domain"
	"github.com/fjod/cookcart/internal/order"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrUnavailable is returned while a breaker is open or half-open and full.
var ErrUnavailable = errors.New("collaborator unavailable")

type Settings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultSettings() Settings {
	return Settings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

func newBreaker[T any](name string, s Settings, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Caller cancellation says nothing about the collaborator's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}

type AddressRepository struct {
	next address.Repository
	list *gobreaker.CircuitBreaker[[]d.Address]
	save *gobreaker.CircuitBreaker[*d.Address]
}

func NewAddressRepository(next address.Repository, s Settings, logger *zap.Logger) *AddressRepository {
	return &AddressRepository{
		next: next,
		list: newBreaker[[]d.Address]("addresses-list", s, logger),
		save: newBreaker[*d.Address]("addresses-save", s, logger),
	}
}

func (b *AddressRepository) GetAddresses(ctx context.Context, userID string) ([]d.Address, error) {
	addresses, err := b.list.Execute(func() ([]d.Address, error) {
		return b.next.GetAddresses(ctx, userID)
	})
	return addresses, translate(err)
}

func (b *AddressRepository) SaveAddress(ctx context.Context, userID string, input d.AddressInput) (*d.Address, error) {
	saved, err := b.save.Execute(func() (*d.Address, error) {
		return b.next.SaveAddress(ctx, userID, input)
	})
	return saved, translate(err)
}

type OrderPlacer struct {
	next order.Placer
	cb   *gobreaker.CircuitBreaker[*d.Order]
}

func NewOrderPlacer(next order.Placer, s Settings, logger *zap.Logger) *OrderPlacer {
	return &OrderPlacer{
		next: next,
		cb:   newBreaker[*d.Order]("orders-place", s, logger),
	}
}

func (b *OrderPlacer) PlaceOrder(ctx context.Context, req d.OrderRequest) (*d.Order, error) {
	placed, err := b.cb.Execute(func() (*d.Order, error) {
		return b.next.PlaceOrder(ctx, req)
	})
	return placed, translate(err)
}

func (b *OrderPlacer) State() gobreaker.State {
	return b.cb.State()
}
