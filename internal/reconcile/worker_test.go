package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledgerflow/internal/logging"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

type flakyRecords struct {
	transaction.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyRecords) Create(ctx context.Context, rec transaction.Record) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("database unavailable")
	}
	f.mu.Unlock()
	return f.Store.Create(ctx, rec)
}

type capturePublisher struct {
	mu    sync.Mutex
	views []transaction.View
}

func (p *capturePublisher) Publish(_ context.Context, view transaction.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, view)
	return nil
}

func deferredView() transaction.View {
	return transaction.View{
		Record: transaction.Record{
			ID:         "0190a4a8-6f55-7000-8000-000000000001",
			ReceiverID: "acc-b",
			Amount:     decimal.RequireFromString("25.00"),
			Type:       transaction.TypeDeposit,
			Status:     transaction.StatusCompleted,
			CreatedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
		ReceiverName: "Bob",
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newWorkerFixture(t *testing.T, failures, maxAttempts int) (*Worker, *Outbox, Store, transaction.Store, *capturePublisher, *fixedClock) {
	t.Helper()
	store := NewMemoryStore()
	records := transaction.NewMemoryStore()
	pub := &capturePublisher{}
	clock := &fixedClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	outbox := NewOutbox(store, logging.Discard())
	outbox.now = clock.Now
	worker := NewWorker(store, &flakyRecords{Store: records, failures: failures}, pub, logging.Discard(), WorkerConfig{
		BaseBackoff: time.Second,
		MaxAttempts: maxAttempts,
	})
	worker.now = clock.Now
	return worker, outbox, store, records, pub, clock
}

func TestWorkerPersistsAndPublishesDeferredRecord(t *testing.T) {
	ctx := context.Background()
	worker, outbox, store, records, pub, _ := newWorkerFixture(t, 0, 3)

	view := deferredView()
	require.NoError(t, outbox.DeferRecord(ctx, view, errors.New("insert failed")))

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := records.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, stored.Status)

	entries, err := store.List(ctx, StatusResolved)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Empty(t, entries[0].LastError)

	require.Len(t, pub.views, 1)
	assert.Equal(t, "Bob", pub.views[0].ReceiverName)
}

func TestWorkerTreatsDuplicateAsStored(t *testing.T) {
	ctx := context.Background()
	worker, outbox, store, records, _, _ := newWorkerFixture(t, 0, 3)

	view := deferredView()
	require.NoError(t, records.Create(ctx, view.Record))
	require.NoError(t, outbox.DeferRecord(ctx, view, errors.New("timeout after commit")))

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := store.List(ctx, StatusResolved)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWorkerBacksOffThenEscalates(t *testing.T) {
	ctx := context.Background()
	worker, outbox, store, _, pub, clock := newWorkerFixture(t, 10, 2)

	require.NoError(t, outbox.DeferRecord(ctx, deferredView(), errors.New("insert failed")))

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := store.List(ctx, StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "database unavailable", pending[0].LastError)
	assert.True(t, pending[0].NextAttemptAt.After(clock.Now()))

	// Not yet due.
	n, err = worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(time.Minute)
	_, err = worker.RunOnce(ctx)
	require.NoError(t, err)

	escalated, err := store.List(ctx, StatusEscalated)
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.Equal(t, 2, escalated[0].Attempts)
	assert.Empty(t, pub.views)
}

func TestEscalatedCompensationIsNotRetried(t *testing.T) {
	ctx := context.Background()
	worker, outbox, store, records, _, _ := newWorkerFixture(t, 0, 3)

	view := deferredView()
	view.Type = transaction.TypeTransfer
	view.SenderID = "acc-a"
	require.NoError(t, outbox.Escalate(ctx, view, "acc-a", view.Amount, errors.New("credit failed")))

	n, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = records.GetByID(ctx, view.ID)
	require.ErrorIs(t, err, transaction.ErrNotFound)

	entries, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, KindCompensationFailed, entries[0].Kind)
	assert.Equal(t, StatusEscalated, entries[0].Status)
	assert.Equal(t, "acc-a", entries[0].AccountID)
}

func TestWorkerStartStop(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	records := transaction.NewMemoryStore()
	outbox := NewOutbox(store, logging.Discard())
	worker := NewWorker(store, records, nil, logging.Discard(), WorkerConfig{Interval: 10 * time.Millisecond})

	require.NoError(t, outbox.DeferRecord(ctx, deferredView(), errors.New("insert failed")))
	worker.Start(ctx)

	assert.Eventually(t, func() bool {
		_, err := records.GetByID(ctx, deferredView().ID)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(stopCtx))
	require.NoError(t, worker.Stop(stopCtx))
}

func TestRetryDelayGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond
	for attempts := 1; attempts <= 5; attempts++ {
		floor := exponential(base, attempts-1)
		d := retryDelay(base, attempts)
		assert.GreaterOrEqual(t, d, floor)
		assert.Less(t, d, floor+base)
	}
	assert.Equal(t, time.Duration(0), exponential(0, 3))
	assert.Equal(t, base, exponential(base, -1))
	assert.Positive(t, exponential(time.Hour, 100))
}
