package cartstore

import (
	"context"
	"sync"

	"github.com/fjod/cookcart/internal/cache"
	d "github.com/fjod/cookcart/internal/domain"
)

type mockRepository struct {
	m         sync.RWMutex
	state     *d.CartState
	err       error
	getCalls  int
	deleteErr error
}

func (m *mockRepository) GetCart(context.Context, string) (*d.CartState, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.state == nil {
		return nil, ErrCartNotFound
	}
	return m.state, nil
}

func (m *mockRepository) UpsertCart(_ context.Context, state *d.CartState) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.state = state
	return nil
}

func (m *mockRepository) DeleteCart(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.state == nil {
		return ErrCartNotFound
	}
	m.state = nil
	return nil
}

func (m *mockRepository) calls() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.getCalls
}

type mockCache struct {
	m      sync.RWMutex
	state  *d.CartState
	err    error
	sets   int
	delete int
}

func (m *mockCache) Get(context.Context, string) (*d.CartState, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.state == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.state, nil
}

func (m *mockCache) Set(_ context.Context, _ string, state *d.CartState) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sets++
	m.state = state
	return nil
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.delete++
	m.state = nil
	return nil
}

func (m *mockCache) cached() *d.CartState {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.state
}
