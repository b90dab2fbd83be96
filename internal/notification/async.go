package notification

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// DefaultMaxInFlight is used when NewAsync receives a non-positive limit.
const DefaultMaxInFlight = 16

var (
	// ErrQueueFull is returned when every publish slot is busy and the event
	// was dropped.
	ErrQueueFull = errors.New("publish queue full")

	// ErrClosed is returned for events submitted after Close.
	ErrClosed = errors.New("publisher closed")
)

// Async hands events to the wrapped publisher on background goroutines. It
// never blocks the caller: when all slots are busy the event is dropped.
type Async struct {
	next    Publisher
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	sema   chan struct{}
}

// NewAsync wraps next with at most maxInFlight concurrent deliveries, each
// bounded by timeout.
func NewAsync(next Publisher, logger *slog.Logger, maxInFlight int, timeout time.Duration) *Async {
	if maxInFlight < 1 {
		maxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{
		next:    next,
		logger:  logger,
		timeout: timeout,
		sema:    make(chan struct{}, maxInFlight),
	}
}

// Publish schedules delivery and returns immediately. The delivery does not
// inherit cancellation from ctx.
func (a *Async) Publish(ctx context.Context, view transaction.View) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	select {
	case a.sema <- struct{}{}:
	default:
		a.mu.Unlock()
		a.logger.WarnContext(ctx, "publish dropped", "transaction_id", view.ID, "reason", ErrQueueFull.Error())
		return ErrQueueFull
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer func() {
			<-a.sema
			if rvr := recover(); rvr != nil {
				a.logger.ErrorContext(ctx, "panic in publisher", "panic", rvr, "stack", string(debug.Stack()))
			}
		}()

		pubCtx := context.WithoutCancel(ctx)
		if a.timeout > 0 {
			var cancel context.CancelFunc
			pubCtx, cancel = context.WithTimeout(pubCtx, a.timeout)
			defer cancel()
		}
		if err := a.next.Publish(pubCtx, view); err != nil {
			a.logger.WarnContext(ctx, "publish failed", "transaction_id", view.ID, "error", err)
		}
	}()
	return nil
}

// Close stops accepting events and waits for in-flight deliveries or ctx.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
