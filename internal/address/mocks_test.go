package address

import (
	"context"
	"fmt"

	d "github.com/fjod/cookcart/internal/domain"
)

type mockRepository struct {
	Addresses []d.Address
	GetErr    error
	SaveErr   error

	SaveCalls int
	Saved     *d.AddressInput
}

func (m *mockRepository) GetAddresses(context.Context, string) ([]d.Address, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Addresses, nil
}

func (m *mockRepository) SaveAddress(_ context.Context, _ string, input d.AddressInput) (*d.Address, error) {
	m.SaveCalls++
	m.Saved = &input
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	a := input.WithID(fmt.Sprintf("addr-%d", len(m.Addresses)+1))
	m.Addresses = append(m.Addresses, a)
	return &a, nil
}
