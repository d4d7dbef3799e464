package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var placedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func orderMessage(t *testing.T, userID string) kafka.Message {
	event := d.OrderPlacedEvent{
		OrderID:     "order-1",
		UserID:      userID,
		VendorID:    "sunita",
		TotalAmount: decimal.NewFromInt(270),
		ItemCount:   2,
		PlacedAt:    placedAt,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{
		Key:     []byte(event.OrderID),
		Value:   payload,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(d.EventTypeOrderPlaced)}},
	}
}

func cartState(userID string, updatedAt time.Time, items int) *d.CartState {
	vc := d.VendorCart{VendorID: "sunita", VendorName: "Sunita"}
	for i := 0; i < items; i++ {
		vc.Items = append(vc.Items, d.LineItem{
			ItemID:    fmt.Sprintf("dish-%d", i),
			VendorID:  "sunita",
			UnitPrice: decimal.NewFromInt(100),
			Quantity:  1,
		})
	}
	return &d.CartState{UserID: userID, ActiveVendorID: "sunita", Carts: []d.VendorCart{vc}, UpdatedAt: updatedAt}
}

func TestHandle_DeletesCartOlderThanOrder(t *testing.T) {
	store := &MockStore{States: map[string]*d.CartState{
		"user-1": cartState("user-1", placedAt.Add(-time.Minute), 2),
	}}
	cleaner := NewCartCleaner(newMockReader(), store, zap.NewNop())

	require.NoError(t, cleaner.handle(context.Background(), orderMessage(t, "user-1")))
	assert.Equal(t, []string{"user-1"}, store.deleted())
}

func TestHandle_DeletesEmptyCart(t *testing.T) {
	store := &MockStore{States: map[string]*d.CartState{
		"user-1": cartState("user-1", placedAt.Add(time.Hour), 0),
	}}
	cleaner := NewCartCleaner(newMockReader(), store, zap.NewNop())

	require.NoError(t, cleaner.handle(context.Background(), orderMessage(t, "user-1")))
	assert.Equal(t, []string{"user-1"}, store.deleted())
}

func TestHandle_KeepsCartBuiltAfterOrder(t *testing.T) {
	store := &MockStore{States: map[string]*d.CartState{
		"user-1": cartState("user-1", placedAt.Add(time.Minute), 1),
	}}
	cleaner := NewCartCleaner(newMockReader(), store, zap.NewNop())

	require.NoError(t, cleaner.handle(context.Background(), orderMessage(t, "user-1")))
	assert.Empty(t, store.deleted())
}

func TestHandle_IgnoresOtherEventTypes(t *testing.T) {
	store := &MockStore{}
	cleaner := NewCartCleaner(newMockReader(), store, zap.NewNop())

	msg := orderMessage(t, "user-1")
	msg.Headers = []kafka.Header{{Key: "event_type", Value: []byte("order.shipped")}}

	err := cleaner.handle(context.Background(), msg)
	assert.ErrorIs(t, err, errIgnored)
	assert.Empty(t, store.deleted())
}

func TestHandle_BadPayload(t *testing.T) {
	store := &MockStore{}
	cleaner := NewCartCleaner(newMockReader(), store, zap.NewNop())

	msg := orderMessage(t, "user-1")
	msg.Value = []byte("{not json")
	assert.Error(t, cleaner.handle(context.Background(), msg))

	assert.Error(t, cleaner.handle(context.Background(), orderMessage(t, "")))
	assert.Empty(t, store.deleted())
}

func TestHandle_StoreErrors(t *testing.T) {
	store := &MockStore{GetErr: errors.New("mongo down")}
	cleaner := NewCartCleaner(newMockReader(), store, zap.NewNop())
	assert.Error(t, cleaner.handle(context.Background(), orderMessage(t, "user-1")))

	store = &MockStore{DeleteErr: errors.New("mongo down")}
	cleaner = NewCartCleaner(newMockReader(), store, zap.NewNop())
	assert.Error(t, cleaner.handle(context.Background(), orderMessage(t, "user-1")))
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	reader := newMockReader(orderMessage(t, "user-1"), orderMessage(t, "user-2"))
	store := &MockStore{}
	cleaner := NewCartCleaner(reader, store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(store.deleted()) == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}

	cleaner.Close()
	assert.True(t, reader.closed)
}
