package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const ConsumerGroup = "cookcart-cart-cleaner"

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartStore is the persisted cart state the cleaner prunes.
type CartStore interface {
	GetCart(ctx context.Context, userID string) (*d.CartState, error)
	DeleteCart(ctx context.Context, userID string) error
}

// CartCleaner drops persisted carts once their order has been placed, so a
// session restored on another instance does not resurrect ordered items.
type CartCleaner struct {
	reader MessageReader
	store  CartStore
	logger *zap.Logger
}

func NewKafkaReader(topic string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  ConsumerGroup,
		MaxBytes: 10e6, // 10MB
	})
}

func NewCartCleaner(reader MessageReader, store CartStore, logger *zap.Logger) *CartCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartCleaner{reader: reader, store: store, logger: logger}
}

func (c *CartCleaner) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.consume(ctx)
	}
}

func (c *CartCleaner) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing reader", zap.Error(err))
	}
}

func (c *CartCleaner) consume(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("error reading message", zap.Error(err))
		}
		return
	}
	err = c.handle(ctx, m)
	switch {
	case err == nil:
	case errors.Is(err, errIgnored):
		c.logger.Debug("order event ignored", zap.Error(err))
	default:
		c.logger.Warn("order event skipped",
			zap.String("key", string(m.Key)),
			zap.Error(err),
		)
	}
}

var errIgnored = errors.New("ignored event")

func (c *CartCleaner) handle(ctx context.Context, m kafka.Message) error {
	if eventType(m) != d.EventTypeOrderPlaced {
		return fmt.Errorf("%w: type %q", errIgnored, eventType(m))
	}

	var event d.OrderPlacedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if event.UserID == "" {
		return errors.New("missing user_id")
	}

	state, err := c.store.GetCart(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if !ordered(state, event) {
		c.logger.Debug("cart changed after order, keeping it",
			zap.String("user_id", event.UserID),
			zap.String("order_id", event.OrderID),
		)
		return nil
	}

	if err := c.store.DeleteCart(ctx, event.UserID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	c.logger.Info("cart cleared after order",
		zap.String("user_id", event.UserID),
		zap.String("order_id", event.OrderID),
	)
	return nil
}

// ordered reports whether state holds nothing newer than the placed order.
func ordered(state *d.CartState, event d.OrderPlacedEvent) bool {
	if state == nil {
		return true
	}
	for _, vc := range state.Carts {
		if vc.VendorID == state.ActiveVendorID && len(vc.Items) > 0 {
			return !state.UpdatedAt.After(event.PlacedAt)
		}
	}
	return true
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
