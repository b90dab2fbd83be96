package account

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Seed stores an account with the given balance. Intended for tests.
func Seed(ctx context.Context, store Store, id, name, balance string) (Account, error) {
	now := time.Now().UTC()
	acc := Account{
		ID:        id,
		Name:      name,
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return acc, store.Create(ctx, acc)
}
