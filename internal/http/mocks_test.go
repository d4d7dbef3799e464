package http

import (
	"context"
	"fmt"
	"sync"

	d "github.com/fjod/cookcart/internal/domain"
)

type MockAddressRepository struct {
	m         sync.Mutex
	Addresses []d.Address
	FetchErr  error
	SaveErr   error
}

func (r *MockAddressRepository) GetAddresses(context.Context, string) ([]d.Address, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.FetchErr != nil {
		return nil, r.FetchErr
	}
	return append([]d.Address{}, r.Addresses...), nil
}

func (r *MockAddressRepository) SaveAddress(_ context.Context, _ string, input d.AddressInput) (*d.Address, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.SaveErr != nil {
		return nil, r.SaveErr
	}
	a := input.WithID(fmt.Sprintf("addr-%d", len(r.Addresses)+1))
	r.Addresses = append(r.Addresses, a)
	return &a, nil
}

type MockPlacer struct {
	m        sync.Mutex
	Err      error
	Requests []d.OrderRequest
}

func (p *MockPlacer) PlaceOrder(_ context.Context, req d.OrderRequest) (*d.Order, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return nil, p.Err
	}
	return &d.Order{
		ID:          fmt.Sprintf("order-%d", len(p.Requests)),
		Status:      d.OrderStatusPending,
		TotalAmount: req.TotalAmount(),
	}, nil
}
