package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledgerflow/internal/account"
	"github.com/congo-pay/ledgerflow/internal/logging"
	"github.com/congo-pay/ledgerflow/internal/reconcile"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

const (
	alice = "0190a4a8-0000-7000-8000-00000000000a"
	bob   = "0190a4a8-0000-7000-8000-00000000000b"
	carol = "0190a4a8-0000-7000-8000-00000000000c"
	ghost = "0190a4a8-0000-7000-8000-0000000000ff"
)

// scriptedAccounts wraps a store and lets tests fail selected adjustments.
type scriptedAccounts struct {
	account.Store
	mu      sync.Mutex
	adjusts int
	gets    int
	fail    func(call int, id string, delta decimal.Decimal) error
}

func (s *scriptedAccounts) ConditionalAdjustBalance(ctx context.Context, id string, delta decimal.Decimal, pred account.Predicate) (account.Account, error) {
	s.mu.Lock()
	s.adjusts++
	call := s.adjusts
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		if err := fail(call, id, delta); err != nil {
			return account.Account{}, err
		}
	}
	return s.Store.ConditionalAdjustBalance(ctx, id, delta, pred)
}

func (s *scriptedAccounts) Get(ctx context.Context, id string) (account.Account, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.Get(ctx, id)
}

func (s *scriptedAccounts) calls() (adjusts, gets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjusts, s.gets
}

// failingRecords fails every Create.
type failingRecords struct {
	transaction.Store
}

func (failingRecords) Create(context.Context, transaction.Record) error {
	return errors.New("connection reset")
}

type capturePublisher struct {
	mu    sync.Mutex
	views []transaction.View
	err   error
}

func (p *capturePublisher) Publish(_ context.Context, view transaction.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, view)
	return p.err
}

func (p *capturePublisher) published() []transaction.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]transaction.View(nil), p.views...)
}

type fixture struct {
	engine    *Engine
	accounts  *scriptedAccounts
	records   transaction.Store
	outbox    reconcile.Store
	publisher *capturePublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithRecords(t, transaction.NewMemoryStore(), opts...)
}

func newFixtureWithRecords(t *testing.T, records transaction.Store, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		accounts:  &scriptedAccounts{Store: account.NewMemoryStore()},
		records:   records,
		outbox:    reconcile.NewMemoryStore(),
		publisher: &capturePublisher{},
	}
	outbox := reconcile.NewOutbox(f.outbox, logging.Discard())
	f.engine = New(f.accounts, f.records, f.publisher, outbox, logging.Discard(), opts...)
	t.Cleanup(func() { _ = f.engine.Close(context.Background()) })
	return f
}

func (f *fixture) seed(t *testing.T, id, name, balance string) {
	t.Helper()
	_, err := account.Seed(context.Background(), f.accounts.Store, id, name, balance)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acc, err := f.accounts.Store.Get(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func (f *fixture) drain(t *testing.T) []transaction.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.engine.Close(ctx))
	return f.publisher.published()
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireBalance(t *testing.T, f *fixture, id, want string) {
	t.Helper()
	got := f.balance(t, id)
	require.True(t, got.Equal(amount(want)), "balance of %s: want %s, got %s", id, want, got)
}

func newSeededStore(t *testing.T) account.Store {
	t.Helper()
	store := account.NewMemoryStore()
	_, err := account.Seed(context.Background(), store, alice, "Alice", "0")
	require.NoError(t, err)
	return store
}
