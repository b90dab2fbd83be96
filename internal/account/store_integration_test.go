//go:build integration

package account

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledgerflow/internal/infra/infratest"
)

func TestPostgresStore(t *testing.T) {
	runStoreContract(t, NewPostgresStore(infratest.Postgres(t)))
}

func TestMongoStore(t *testing.T) {
	runStoreContract(t, NewMongoStore(infratest.Mongo(t)))
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		id := uuid.NewString()
		_, err := Seed(ctx, store, id, "Ada", "12.34")
		require.NoError(t, err)

		_, err = Seed(ctx, store, id, "Ada", "0")
		require.ErrorIs(t, err, ErrExists)

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.Name)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("12.34")), "balance %s", got.Balance)

		_, err = store.Get(ctx, uuid.NewString())
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		first, second := uuid.NewString(), uuid.NewString()
		_, err := Seed(ctx, store, first, "Zeno "+first, "1")
		require.NoError(t, err)
		_, err = Seed(ctx, store, second, "Aaron "+second, "2")
		require.NoError(t, err)

		list, err := store.List(ctx)
		require.NoError(t, err)
		pos := map[string]int{}
		for i, acc := range list {
			pos[acc.ID] = i
		}
		require.Contains(t, pos, first)
		require.Contains(t, pos, second)
		assert.Less(t, pos[second], pos[first])
	})

	t.Run("conditional adjust", func(t *testing.T) {
		id := uuid.NewString()
		_, err := Seed(ctx, store, id, "Grace", "100.00")
		require.NoError(t, err)

		acc, err := store.ConditionalAdjustBalance(ctx, id, decimal.RequireFromString("-40.50"), NonNegative())
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.RequireFromString("59.50")), "balance %s", acc.Balance)

		_, err = store.ConditionalAdjustBalance(ctx, id, decimal.RequireFromString("-59.51"), NonNegative())
		require.ErrorIs(t, err, ErrPredicateFailed)

		_, err = store.ConditionalAdjustBalance(ctx, uuid.NewString(), decimal.NewFromInt(1), NonNegative())
		require.ErrorIs(t, err, ErrNotFound)

		_, err = store.ConditionalAdjustBalance(ctx, id, decimal.NewFromInt(-60), NonNegative())
		require.ErrorIs(t, err, ErrPredicateFailed)

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.RequireFromString("59.50")), "balance %s", got.Balance)
	})

	t.Run("concurrent debits", func(t *testing.T) {
		id := uuid.NewString()
		_, err := Seed(ctx, store, id, "Linus", "100")
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			applied int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.ConditionalAdjustBalance(ctx, id, decimal.NewFromInt(-7), NonNegative())
				if err == nil {
					mu.Lock()
					applied++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, ErrPredicateFailed)
			}()
		}
		wg.Wait()

		assert.Equal(t, 14, applied)
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(decimal.NewFromInt(2)), "balance %s", got.Balance)
	})
}
