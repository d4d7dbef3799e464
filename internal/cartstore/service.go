package cartstore

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/cookcart/internal/cache"
	d "github.com/fjod/cookcart/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service reads cart state through the cache and writes through to Mongo.
type Service struct {
	repo   CartRepository
	cache  cache.CartCache
	logger *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewService(repo CartRepository, cache cache.CartCache, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// GetCart returns the stored state, or an empty state when the user has none.
func (s *Service) GetCart(ctx context.Context, userID string) (*d.CartState, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		state, err := s.cache.Get(ctx, userID)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.String("user_id", userID), zap.Error(err))
		}

		state, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			return &d.CartState{UserID: userID, Carts: []d.VendorCart{}, UpdatedAt: time.Now().UTC()}, nil
		}
		if err != nil {
			return nil, err
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, state); errSet != nil {
				s.logger.Warn("cache set error", zap.String("user_id", userID), zap.Error(errSet))
			}
		}()
		return state, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*d.CartState), nil
}

func (s *Service) SaveCart(ctx context.Context, state *d.CartState) error {
	if err := s.repo.UpsertCart(ctx, state); err != nil {
		s.logger.Error("repo upsert cart error", zap.String("user_id", state.UserID), zap.Error(err))
		return err
	}
	s.invalidate(state.UserID)
	return nil
}

// DeleteCart removes persisted state. A missing cart is not an error.
func (s *Service) DeleteCart(ctx context.Context, userID string) error {
	if err := s.repo.DeleteCart(ctx, userID); err != nil && !errors.Is(err, ErrCartNotFound) {
		s.logger.Error("repo delete cart error", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *Service) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", zap.String("user_id", userID), zap.Error(err))
	}
}
