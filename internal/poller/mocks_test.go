package poller

import (
	"context"
	"sync"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/segmentio/kafka-go"
)

type MockReader struct {
	messages chan kafka.Message
	closed   bool
}

func newMockReader(msgs ...kafka.Message) *MockReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &MockReader{messages: ch}
}

func (r *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *MockReader) Close() error {
	r.closed = true
	return nil
}

type MockStore struct {
	m         sync.Mutex
	States    map[string]*d.CartState
	GetErr    error
	DeleteErr error
	Deleted   []string
}

func (s *MockStore) GetCart(_ context.Context, userID string) (*d.CartState, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	if state, ok := s.States[userID]; ok {
		return state, nil
	}
	return &d.CartState{UserID: userID, Carts: []d.VendorCart{}}, nil
}

func (s *MockStore) DeleteCart(_ context.Context, userID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.Deleted = append(s.Deleted, userID)
	delete(s.States, userID)
	return nil
}

func (s *MockStore) deleted() []string {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]string{}, s.Deleted...)
}
