package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	r "github.com/fjod/cookcart/internal/repository"
	"github.com/segmentio/kafka-go"
)

type MockRepository struct {
	m            sync.Mutex
	OutboxEvents []*r.OutboxEvent
	GetErr       error
	MarkErr      error
	PurgeErr     error
	Processed    []string
	PurgeCutoff  time.Time
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var pending []*r.OutboxEvent
	for _, e := range m.OutboxEvents {
		if !m.isProcessed(e.ID) {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.Processed = append(m.Processed, id)
	return nil
}

func (m *MockRepository) PurgeProcessedEvents(_ context.Context, cutoff time.Time) (int64, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.PurgeCutoff = cutoff
	if m.PurgeErr != nil {
		return 0, m.PurgeErr
	}
	return int64(len(m.Processed)), nil
}

func (m *MockRepository) processed() []string {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]string{}, m.Processed...)
}

func (m *MockRepository) isProcessed(id string) bool {
	for _, p := range m.Processed {
		if p == id {
			return true
		}
	}
	return false
}

type MockWriter struct {
	m        sync.Mutex
	Messages []kafka.Message
	FailKeys map[string]bool
	Closed   bool
}

func (w *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.m.Lock()
	defer w.m.Unlock()
	for _, msg := range msgs {
		if w.FailKeys[string(msg.Key)] {
			return errors.New("broker unavailable")
		}
	}
	w.Messages = append(w.Messages, msgs...)
	return nil
}

func (w *MockWriter) Close() error {
	w.Closed = true
	return nil
}
