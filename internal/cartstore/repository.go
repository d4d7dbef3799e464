package cartstore

import (
	"context"
	"errors"

	d "github.com/fjod/cookcart/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository stores one CartState document per user.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*d.CartState, error)
	UpsertCart(ctx context.Context, state *d.CartState) error
	DeleteCart(ctx context.Context, userID string) error
}
