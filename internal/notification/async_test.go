package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledgerflow/internal/logging"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

type publishFunc func(ctx context.Context, view transaction.View) error

func (f publishFunc) Publish(ctx context.Context, view transaction.View) error { return f(ctx, view) }

func TestAsyncDeliversWithoutCallerCancellation(t *testing.T) {
	got := make(chan error, 1)
	async := NewAsync(publishFunc(func(ctx context.Context, _ transaction.View) error {
		got <- ctx.Err()
		return nil
	}), logging.Discard(), 2, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, async.Publish(ctx, transaction.View{Record: transaction.Record{ID: "tx-1"}}))

	select {
	case err := <-got:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish was not delivered")
	}
	require.NoError(t, async.Close(context.Background()))
}

func TestAsyncDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var delivered atomic.Int32
	async := NewAsync(publishFunc(func(context.Context, transaction.View) error {
		<-release
		delivered.Add(1)
		return nil
	}), logging.Discard(), 1, 0)

	require.NoError(t, async.Publish(context.Background(), transaction.View{}))
	err := async.Publish(context.Background(), transaction.View{})
	require.ErrorIs(t, err, ErrQueueFull)

	close(release)
	require.NoError(t, async.Close(context.Background()))
	assert.EqualValues(t, 1, delivered.Load())

	require.ErrorIs(t, async.Publish(context.Background(), transaction.View{}), ErrClosed)
}

func TestAsyncRecoversFromPanics(t *testing.T) {
	var once sync.Once
	done := make(chan struct{})
	async := NewAsync(publishFunc(func(context.Context, transaction.View) error {
		defer once.Do(func() { close(done) })
		panic("boom")
	}), logging.Discard(), 1, 0)

	require.NoError(t, async.Publish(context.Background(), transaction.View{}))
	<-done
	require.NoError(t, async.Close(context.Background()))
}

func TestAsyncCloseHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	async := NewAsync(publishFunc(func(context.Context, transaction.View) error {
		<-release
		return nil
	}), logging.Discard(), 1, 0)
	require.NoError(t, async.Publish(context.Background(), transaction.View{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, async.Close(ctx), context.DeadlineExceeded)
}

func TestMultiJoinsErrors(t *testing.T) {
	var calls atomic.Int32
	ok := publishFunc(func(context.Context, transaction.View) error { calls.Add(1); return nil })
	failing := publishFunc(func(context.Context, transaction.View) error { calls.Add(1); return errors.New("down") })

	err := Multi{ok, nil, failing, ok}.Publish(context.Background(), transaction.View{})
	require.ErrorContains(t, err, "down")
	assert.EqualValues(t, 3, calls.Load())
}

func TestLoggerPublisherIsNilSafe(t *testing.T) {
	var p *LoggerPublisher
	assert.NoError(t, p.Publish(context.Background(), transaction.View{}))
	assert.NoError(t, NewLoggerPublisher(logging.Discard()).Publish(context.Background(), transaction.View{}))
}
