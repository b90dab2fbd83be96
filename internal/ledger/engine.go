package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/ledgerflow/internal/account"
	"github.com/congo-pay/ledgerflow/internal/notification"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

const (
	defaultCompensationTimeout = 10 * time.Second
	defaultPersistTimeout      = 10 * time.Second
	defaultPublishTimeout      = 5 * time.Second
)

// Reconciler takes over work the engine cannot finish inline.
type Reconciler interface {
	// DeferRecord queues a completed movement whose record was not stored.
	DeferRecord(ctx context.Context, view transaction.View, cause error) error
	// Escalate reports a sender left debited after a failed compensation.
	Escalate(ctx context.Context, view transaction.View, accountID string, amount decimal.Decimal, cause error) error
}

// Engine validates and applies balance movements and records their outcome.
// It holds no locks; atomicity comes from account.Store.
type Engine struct {
	accounts   account.Store
	records    transaction.Store
	publisher  *notification.Async
	reconciler Reconciler
	logger     *slog.Logger

	now                 func() time.Time
	newID               func() (string, error)
	observer            TransferObserver
	compensationTimeout time.Duration
	persistTimeout      time.Duration

	strategies map[transaction.Type]strategy
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithTransferObserver installs a hook called at every transfer state change.
func WithTransferObserver(obs TransferObserver) Option {
	return func(e *Engine) { e.observer = obs }
}

// WithCompensationTimeout bounds the detached re-credit of a transfer sender.
// Non-positive values keep the default.
func WithCompensationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.compensationTimeout = d
		}
	}
}

// WithPersistTimeout bounds the detached record write after a mutation.
// Non-positive values keep the default.
func WithPersistTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.persistTimeout = d
		}
	}
}

// New builds an engine. publisher and reconciler may be nil.
func New(accounts account.Store, records transaction.Store, publisher notification.Publisher, reconciler Reconciler, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		accounts:            accounts,
		records:             records,
		reconciler:          reconciler,
		logger:              logger,
		now:                 func() time.Time { return time.Now().UTC() },
		newID:               newRecordID,
		compensationTimeout: defaultCompensationTimeout,
		persistTimeout:      defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reconciler == nil {
		e.reconciler = unavailableReconciler{}
	}

	if async, ok := publisher.(*notification.Async); ok {
		e.publisher = async
	} else {
		if publisher == nil {
			publisher = notification.Nop{}
		}
		e.publisher = notification.NewAsync(publisher, logger, notification.DefaultMaxInFlight, defaultPublishTimeout)
	}

	e.strategies = map[transaction.Type]strategy{
		transaction.TypeDeposit:    e.deposit,
		transaction.TypeWithdrawal: e.withdraw,
		transaction.TypeTransfer:   e.transfer,
	}
	return e
}

// Submit validates req, applies the movement and returns the resulting record.
// The record status is pending when the mutation succeeded but the record
// write was handed to the reconciler.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (transaction.View, error) {
	if err := Validate(req); err != nil {
		e.logger.InfoContext(ctx, "transaction rejected", "reason", err.Error())
		return transaction.View{}, err
	}

	id, err := e.newID()
	if err != nil {
		return transaction.View{}, InternalError("could not allocate transaction id", err)
	}

	m, err := e.strategies[req.Type](ctx, id, req)
	if err != nil {
		e.logRejected(ctx, id, req, err)
		return transaction.View{}, err
	}

	return e.finalize(ctx, transaction.Record{
		ID:         id,
		SenderID:   m.senderID,
		ReceiverID: m.receiverID,
		Amount:     req.Amount,
		Type:       req.Type,
		Status:     transaction.StatusCompleted,
		CreatedAt:  e.now(),
	})
}

// Close waits for in-flight publishes or ctx.
func (e *Engine) Close(ctx context.Context) error {
	return e.publisher.Close(ctx)
}

func (e *Engine) logRejected(ctx context.Context, id string, req SubmitRequest, err error) {
	attrs := []any{
		"transaction_id", id,
		"type", string(req.Type),
		"amount", req.Amount.String(),
		"code", KindOf(err).String(),
		"error", err,
	}
	switch KindOf(err) {
	case KindFatalInconsistency:
		// logged by the transfer path with alert=true
	case KindInternal:
		e.logger.ErrorContext(ctx, "transaction failed", attrs...)
	default:
		e.logger.InfoContext(ctx, "transaction rejected", attrs...)
	}
}

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var errNoReconciler = errors.New("no reconciler configured")

type unavailableReconciler struct{}

func (unavailableReconciler) DeferRecord(context.Context, transaction.View, error) error {
	return errNoReconciler
}

func (unavailableReconciler) Escalate(context.Context, transaction.View, string, decimal.Decimal, error) error {
	return errNoReconciler
}
