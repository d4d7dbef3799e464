package address

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	ErrFetch      = errors.New("failed to fetch addresses")
	ErrSave       = errors.New("failed to save address")
	ErrValidation = errors.New("invalid address")
)

// Repository is the address persistence backend.
type Repository interface {
	GetAddresses(ctx context.Context, userID string) ([]d.Address, error)
	SaveAddress(ctx context.Context, userID string, input d.AddressInput) (*d.Address, error)
}

// Book lists and saves a user's delivery addresses. It remembers how many
// addresses the last successful listing returned per user, so a save after
// an empty listing becomes the default. Users with no known listing keep the
// caller's flag.
type Book struct {
	repo     Repository
	validate *validator.Validate

	mu   sync.Mutex
	seen map[string]int
}

func NewBook(repo Repository) *Book {
	return &Book{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		seen:     make(map[string]int),
	}
}

func (b *Book) List(ctx context.Context, userID string) ([]d.Address, error) {
	addresses, err := b.repo.GetAddresses(ctx, userID)
	if err != nil {
		b.Forget(userID)
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if addresses == nil {
		addresses = []d.Address{}
	}

	b.mu.Lock()
	b.seen[userID] = len(addresses)
	b.mu.Unlock()

	return addresses, nil
}

// Validate normalises input and checks it without touching the backend.
func (b *Book) Validate(input d.AddressInput) (d.AddressInput, error) {
	input = normalise(input)
	if err := b.validate.Struct(input); err != nil {
		return input, fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}
	return input, nil
}

func (b *Book) Save(ctx context.Context, userID string, input d.AddressInput) (*d.Address, error) {
	input, err := b.Validate(input)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if count, known := b.seen[userID]; known && count == 0 {
		input.IsDefault = true
	}
	b.mu.Unlock()

	saved, err := b.repo.SaveAddress(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSave, err)
	}
	if saved == nil || saved.ID == "" {
		return nil, fmt.Errorf("%w: backend returned no address id", ErrSave)
	}

	b.mu.Lock()
	if _, known := b.seen[userID]; known {
		b.seen[userID]++
	}
	b.mu.Unlock()

	return saved, nil
}

// Forget drops what the book remembers about a user.
func (b *Book) Forget(userID string) {
	b.mu.Lock()
	delete(b.seen, userID)
	b.mu.Unlock()
}

func DefaultAddress(addresses []d.Address) (d.Address, bool) {
	for _, a := range addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return d.Address{}, false
}

func normalise(in d.AddressInput) d.AddressInput {
	in.AddressLine1 = strings.TrimSpace(in.AddressLine1)
	in.AddressLine2 = strings.TrimSpace(in.AddressLine2)
	in.Landmark = strings.TrimSpace(in.Landmark)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.Pincode = strings.TrimSpace(in.Pincode)
	if in.Type == "" {
		in.Type = d.AddressTypeHome
	}
	if in.Coordinates != nil && in.Coordinates.Lat == 0 && in.Coordinates.Lng == 0 {
		in.Coordinates = nil
	}
	return in
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}
