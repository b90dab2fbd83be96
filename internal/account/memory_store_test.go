package account

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionalAdjustBalance(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := Seed(ctx, store, "acc-1", "Ada", "100.00")
	require.NoError(t, err)

	acc, err := store.ConditionalAdjustBalance(ctx, "acc-1", decimal.RequireFromString("-40.50"), NonNegative())
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("59.50")), "balance %s", acc.Balance)

	_, err = store.ConditionalAdjustBalance(ctx, "acc-1", decimal.RequireFromString("-60"), NonNegative())
	require.ErrorIs(t, err, ErrPredicateFailed)

	_, err = store.ConditionalAdjustBalance(ctx, "missing", decimal.NewFromInt(1), NonNegative())
	require.ErrorIs(t, err, ErrNotFound)

	got, err := store.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("59.50")), "failed adjustment must not change balance")
}

func TestConditionalAdjustBalanceDrainsToZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := Seed(ctx, store, "acc-1", "Ada", "50")
	require.NoError(t, err)

	acc, err := store.ConditionalAdjustBalance(ctx, "acc-1", decimal.NewFromInt(-50), NonNegative())
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())

	pred := NonNegative()
	assert.True(t, pred.Floor().IsZero())
	assert.False(t, pred.Allows(decimal.RequireFromString("-0.01")))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := Seed(ctx, store, "acc-1", "Ada", "100")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ConditionalAdjustBalance(ctx, "acc-1", decimal.NewFromInt(-7), NonNegative()); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	acc, err := store.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 14, applied)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(2)), "balance %s", acc.Balance)
}

func TestCanceledContextIsRejected(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ConditionalAdjustBalance(ctx, "acc-1", decimal.NewFromInt(1), NonNegative())
	require.ErrorIs(t, err, context.Canceled)
}

func TestListOrdersByNameThenID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, seed := range [][2]string{{"acc-3", "Bob"}, {"acc-2", "Ada"}, {"acc-1", "Ada"}} {
		_, err := Seed(ctx, store, seed[0], seed[1], "0")
		require.NoError(t, err)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, acc := range list {
		ids[i] = acc.ID
	}
	assert.Equal(t, []string{"acc-1", "acc-2", "acc-3"}, ids)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := Seed(ctx, store, "acc-1", "Ada", "0")
	require.NoError(t, err)
	_, err = Seed(ctx, store, "acc-1", "Bob", "0")
	require.ErrorIs(t, err, ErrExists)
}
