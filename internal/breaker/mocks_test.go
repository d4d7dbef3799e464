package breaker

import (
	"context"

	d "github.com/fjod/cookcart/internal/domain"
)

type MockAddressRepository struct {
	Err       error
	Addresses []d.Address
	Calls     int
}

func (m *MockAddressRepository) GetAddresses(context.Context, string) ([]d.Address, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Addresses, nil
}

func (m *MockAddressRepository) SaveAddress(_ context.Context, _ string, input d.AddressInput) (*d.Address, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	saved := input.WithID("addr-1")
	return &saved, nil
}

type MockPlacer struct {
	Err   error
	Calls int
}

func (m *MockPlacer) PlaceOrder(context.Context, d.OrderRequest) (*d.Order, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &d.Order{ID: "order-1", Status: d.OrderStatusPending}, nil
}
