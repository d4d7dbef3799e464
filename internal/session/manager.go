package session

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/cookcart/internal/address"
	"github.com/fjod/cookcart/internal/cart"
	"github.com/fjod/cookcart/internal/checkout"
	"github.com/fjod/cookcart/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Manager hands out one UserSession per user and restores its cart from the
// persister on first use.
type Manager struct {
	book      *address.Book
	submitter *order.Submitter
	persister CartPersister
	fee       decimal.Decimal
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*UserSession
	sfg      singleflight.Group
	now      func() time.Time
}

type Option func(*Manager)

func WithDeliveryFee(fee decimal.Decimal) Option {
	return func(m *Manager) { m.fee = fee }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithPersister enables cart state persistence. Without it sessions live
// only in memory.
func WithPersister(p CartPersister) Option {
	return func(m *Manager) { m.persister = p }
}

func NewManager(book *address.Book, submitter *order.Submitter, opts ...Option) *Manager {
	m := &Manager{
		book:      book,
		submitter: submitter,
		fee:       checkout.DefaultDeliveryFee,
		logger:    zap.NewNop(),
		sessions:  make(map[string]*UserSession),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Get(ctx context.Context, userID string) (*UserSession, error) {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		s.lastUsed = m.now()
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	v, err, _ := m.sfg.Do(userID, func() (interface{}, error) {
		s, err := m.load(ctx, userID)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := m.sessions[userID]; ok {
			existing.lastUsed = m.now()
			return existing, nil
		}
		s.lastUsed = m.now()
		m.sessions[userID] = s
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*UserSession), nil
}

// End drops the user's session and cancels its network calls. Persisted cart
// state is kept.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.close()
	}
	m.book.Forget(userID)
}

// EvictIdle drops sessions unused for longer than maxIdle and returns how
// many were dropped. Sessions with a network call in progress are kept, and
// so are sessions whose cart could not be written. Without a persister an
// evicted cart is gone.
func (m *Manager) EvictIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*UserSession
	for userID, s := range m.sessions {
		if s.lastUsed.After(cutoff) || s.busy() {
			continue
		}
		delete(m.sessions, userID)
		idle = append(idle, s)
	}
	m.mu.Unlock()

	evicted := 0
	for _, s := range idle {
		if err := s.flush(ctx); err != nil {
			m.mu.Lock()
			if _, ok := m.sessions[s.userID]; !ok {
				m.sessions[s.userID] = s
			}
			m.mu.Unlock()
			continue
		}
		s.close()
		m.book.Forget(s.userID)
		evicted++
	}
	if evicted > 0 {
		m.logger.Info("evicted idle sessions", zap.Int("count", evicted))
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx, maxIdle)
		}
	}
}

func (m *Manager) load(ctx context.Context, userID string) (*UserSession, error) {
	store := cart.NewStore()
	if m.persister != nil {
		state, err := m.persister.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := store.Restore(*state); err != nil {
			m.logger.Warn("discarding unreadable cart state", zap.String("user_id", userID), zap.Error(err))
			store = cart.NewStore()
		}
	}

	return &UserSession{
		userID:    userID,
		book:      m.book,
		submitter: m.submitter,
		persister: m.persister,
		fee:       m.fee,
		logger:    m.logger,
		store:     store,
		resolver:  cart.NewSwitchResolver(store),
		calls:     make(map[string]inflight),
	}, nil
}
