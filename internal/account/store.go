package account

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no account matches the identifier.
	ErrNotFound = errors.New("account not found")

	// ErrPredicateFailed is returned by ConditionalAdjustBalance when the
	// account exists but the resulting balance would violate the predicate.
	ErrPredicateFailed = errors.New("balance predicate failed")

	// ErrExists is returned when creating an account whose id is taken.
	ErrExists = errors.New("account exists")
)

// Store persists accounts. ConditionalAdjustBalance must check the predicate
// and apply the delta as a single atomic step against concurrent callers.
type Store interface {
	Create(ctx context.Context, acc Account) error
	Get(ctx context.Context, id string) (Account, error)
	// List returns every account ordered by name, then id.
	List(ctx context.Context) ([]Account, error)
	ConditionalAdjustBalance(ctx context.Context, id string, delta decimal.Decimal, pred Predicate) (Account, error)
}

// Predicate constrains the balance an adjustment may produce. The floor is
// never below zero.
type Predicate struct {
	floor decimal.Decimal
}

// NonNegative allows any adjustment that keeps the balance at or above zero.
func NonNegative() Predicate {
	return Predicate{floor: decimal.Zero}
}

// Floor returns the lowest balance the predicate permits.
func (p Predicate) Floor() decimal.Decimal {
	return p.floor
}

// Allows reports whether resulting satisfies the predicate.
func (p Predicate) Allows(resulting decimal.Decimal) bool {
	return resulting.GreaterThanOrEqual(p.floor)
}

// MinimumCurrent is the smallest current balance for which adding delta
// satisfies the predicate. Stores use it to express the check as a filter.
func (p Predicate) MinimumCurrent(delta decimal.Decimal) decimal.Decimal {
	return p.floor.Sub(delta)
}
