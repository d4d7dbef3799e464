package order

import (
	"context"

	d "github.com/fjod/cookcart/internal/domain"
)

type mockPlacer struct {
	Order *d.Order
	Err   error

	Calls    int
	Received d.OrderRequest
}

func (m *mockPlacer) PlaceOrder(_ context.Context, req d.OrderRequest) (*d.Order, error) {
	m.Calls++
	m.Received = req
	return m.Order, m.Err
}
