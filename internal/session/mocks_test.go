package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
)

type mockPersister struct {
	m       sync.Mutex
	state   *d.CartState
	saves   []d.CartState
	getErr  error
	saveErr error
}

func (p *mockPersister) GetCart(_ context.Context, userID string) (*d.CartState, error) {
	p.m.Lock()
	defer p.m.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	if p.state == nil {
		return &d.CartState{UserID: userID}, nil
	}
	return p.state, nil
}

func (p *mockPersister) SaveCart(_ context.Context, state *d.CartState) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saves = append(p.saves, *state)
	p.state = state
	return nil
}

func (p *mockPersister) saved() int {
	p.m.Lock()
	defer p.m.Unlock()
	return len(p.saves)
}

type mockAddressRepository struct {
	Addresses []d.Address
}

func (m *mockAddressRepository) GetAddresses(context.Context, string) ([]d.Address, error) {
	return m.Addresses, nil
}

func (m *mockAddressRepository) SaveAddress(_ context.Context, _ string, input d.AddressInput) (*d.Address, error) {
	a := input.WithID(fmt.Sprintf("addr-%d", len(m.Addresses)+1))
	m.Addresses = append(m.Addresses, a)
	return &a, nil
}

// blockingPlacer holds every PlaceOrder call until release is closed or the
// context is cancelled.
type blockingPlacer struct {
	started chan struct{}
	release chan struct{}
	calls   int
	m       sync.Mutex
}

func newBlockingPlacer() *blockingPlacer {
	return &blockingPlacer{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (p *blockingPlacer) PlaceOrder(ctx context.Context, req d.OrderRequest) (*d.Order, error) {
	p.m.Lock()
	p.calls++
	n := p.calls
	p.m.Unlock()

	p.started <- struct{}{}
	select {
	case <-p.release:
		return &d.Order{ID: fmt.Sprintf("order-%d", n), Status: d.OrderStatusPending, TotalAmount: req.TotalAmount(), CreatedAt: time.Now()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
