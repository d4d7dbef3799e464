package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order with this idempotency key already exists")
)

// PlaceOrder stores the order together with its outbox event. A request whose
// idempotency key is already stored returns the existing order.
func (r *Repository) PlaceOrder(ctx context.Context, req d.OrderRequest) (*d.Order, error) {
	placed, err := r.insertOrder(ctx, req)
	if errors.Is(err, ErrDuplicateOrder) {
		return r.getOrderByIdempotencyKey(ctx, req.IdempotencyKey())
	}
	return placed, err
}

func (r *Repository) insertOrder(ctx context.Context, req d.OrderRequest) (*d.Order, error) {
	itemsJSON, err := json.Marshal(req.Items())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(req.DeliveryAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal delivery address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New()
	placed := &d.Order{ID: id.String(), Status: d.OrderStatusPending, TotalAmount: req.TotalAmount()}

	query := `INSERT INTO orders (id, idempotency_key, user_id, vendor_id, vendor_name, items, delivery_address,
	                              subtotal, delivery_fee, total_amount, payment_method, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	          RETURNING created_at`
	insertErr := tx.QueryRowContext(ctx, query,
		id,
		req.IdempotencyKey(),
		req.UserID(),
		req.VendorID(),
		req.VendorName(),
		itemsJSON,
		addressJSON,
		req.Subtotal(),
		req.DeliveryFee(),
		req.TotalAmount(),
		req.PaymentMethod(),
		placed.Status).Scan(&placed.CreatedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateOrder
		}
		return nil, fmt.Errorf("insert order: %w", insertErr)
	}

	event := d.OrderPlacedEvent{
		OrderID:     placed.ID,
		UserID:      req.UserID(),
		VendorID:    req.VendorID(),
		TotalAmount: req.TotalAmount(),
		ItemCount:   req.ItemCount(),
		PlacedAt:    placed.CreatedAt.UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), id, d.EventTypeOrderPlaced, payload); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	return placed, nil
}

func (r *Repository) getOrderByIdempotencyKey(ctx context.Context, key string) (*d.Order, error) {
	query := `SELECT id, status, total_amount, created_at FROM orders WHERE idempotency_key = $1`

	var o d.Order
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, query, key).Scan(&o.ID, &o.Status, &o.TotalAmount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}
	o.CreatedAt = createdAt
	return &o, nil
}
