package checkout

import (
	"context"
	"fmt"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
)

// MockAddressRepository implements address.Repository for testing
type MockAddressRepository struct {
	Addresses []d.Address
	GetErr    error
	SaveErr   error

	GetCalls  int
	SaveCalls int
}

func (m *MockAddressRepository) GetAddresses(context.Context, string) ([]d.Address, error) {
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return append([]d.Address{}, m.Addresses...), nil
}

func (m *MockAddressRepository) SaveAddress(_ context.Context, _ string, input d.AddressInput) (*d.Address, error) {
	m.SaveCalls++
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	a := input.WithID(fmt.Sprintf("addr-%d", len(m.Addresses)+1))
	m.Addresses = append(m.Addresses, a)
	return &a, nil
}

// MockPlacer implements order.Placer for testing
type MockPlacer struct {
	Err      error
	Requests []d.OrderRequest
}

func (m *MockPlacer) PlaceOrder(_ context.Context, req d.OrderRequest) (*d.Order, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &d.Order{
		ID:          fmt.Sprintf("order-%d", len(m.Requests)),
		Status:      d.OrderStatusPending,
		TotalAmount: req.TotalAmount(),
		CreatedAt:   time.Now(),
	}, nil
}
