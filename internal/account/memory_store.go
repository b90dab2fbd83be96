package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory store for tests and local runs.
func NewMemoryStore() Store {
	return &memoryStore{
		accounts: make(map[string]Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryStore) Create(ctx context.Context, acc Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acc.ID]; exists {
		return ErrExists
	}
	s.accounts[acc.ID] = acc
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (s *memoryStore) List(ctx context.Context) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) ConditionalAdjustBalance(ctx context.Context, id string, delta decimal.Decimal, pred Predicate) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	next := acc.Balance.Add(delta)
	if !pred.Allows(next) {
		return Account{}, ErrPredicateFailed
	}
	acc.Balance = next
	acc.UpdatedAt = s.now()
	s.accounts[id] = acc
	return acc, nil
}
