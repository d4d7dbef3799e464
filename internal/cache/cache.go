package cache

import (
	"context"
	"errors"

	d "github.com/fjod/cookcart/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID string) (*d.CartState, error)
	Set(ctx context.Context, userID string, state *d.CartState) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
