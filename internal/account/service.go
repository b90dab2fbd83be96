package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNameRequired is returned when an account is opened without a name.
var ErrNameRequired = errors.New("name is required")

// Service provisions and reads accounts.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService builds an account service instance.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Open creates an account with a zero balance.
func (s *Service) Open(ctx context.Context, name string) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, ErrNameRequired
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Account{}, err
	}
	now := s.now()
	acc := Account{
		ID:        id.String(),
		Name:      name,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, acc); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// List returns every account with its current balance.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

// Get retrieves an account with its current balance.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.store.Get(ctx, id)
}
