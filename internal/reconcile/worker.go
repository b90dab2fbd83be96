package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/congo-pay/ledgerflow/internal/notification"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

const (
	defaultInterval    = 5 * time.Second
	defaultBaseBackoff = time.Second
	defaultMaxAttempts = 8
	defaultBatchSize   = 50
	defaultLease       = 30 * time.Second
)

// WorkerConfig tunes the retry loop. Zero values fall back to defaults.
type WorkerConfig struct {
	Interval    time.Duration
	BaseBackoff time.Duration
	MaxAttempts int
	BatchSize   int
	Lease       time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BatchSize < 1 {
		c.BatchSize = defaultBatchSize
	}
	if c.Lease <= 0 {
		c.Lease = defaultLease
	}
	return c
}

// Worker retries deferred record writes and publishes them once stored.
type Worker struct {
	store     Store
	records   transaction.Store
	publisher notification.Publisher
	logger    *slog.Logger
	cfg       WorkerConfig
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker builds a worker. publisher may be nil.
func NewWorker(store Store, records transaction.Store, publisher notification.Publisher, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = notification.Nop{}
	}
	return &Worker{
		store:     store,
		records:   records,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the poll loop in the background until Stop or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()

		w.logger.InfoContext(ctx, "reconciliation worker started", "interval", w.cfg.Interval)
		for {
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "reconciliation pass failed", "error", err)
			}
			select {
			case <-ctx.Done():
				w.logger.InfoContext(context.WithoutCancel(ctx), "reconciliation worker stopped")
				return
			case <-ticker.C:
			}
		}
	}(w.done)
}

// Stop cancels the loop and waits for the current pass to finish or ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce processes every due entry once and reports how many were resolved.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	entries, err := w.store.ClaimDue(ctx, w.now(), w.cfg.Lease, w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due entries: %w", err)
	}

	resolved := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		ok, err := w.process(ctx, entry)
		if err != nil {
			return resolved, err
		}
		if ok {
			resolved++
		}
	}
	return resolved, nil
}

func (w *Worker) process(ctx context.Context, entry Entry) (bool, error) {
	logger := w.logger.With("entry_id", entry.ID, "transaction_id", entry.RecordID)

	view, attemptErr := entry.View()
	if attemptErr == nil {
		view.Status = transaction.StatusCompleted
		attemptErr = w.persist(ctx, entry, view.Record)
	}

	now := w.now()
	entry.Attempts++
	entry.UpdatedAt = now

	if attemptErr == nil {
		entry.Status = StatusResolved
		entry.LastError = ""
		if err := w.store.Update(ctx, entry); err != nil {
			return false, fmt.Errorf("mark entry %s resolved: %w", entry.ID, err)
		}
		logger.InfoContext(ctx, "deferred record stored", "attempts", entry.Attempts)
		if err := w.publisher.Publish(ctx, view); err != nil {
			logger.WarnContext(ctx, "publish failed", "error", err)
		}
		return true, nil
	}

	entry.LastError = attemptErr.Error()
	if entry.Attempts >= w.cfg.MaxAttempts {
		entry.Status = StatusEscalated
		logger.ErrorContext(ctx, "deferred record escalated",
			"alert", true,
			"attempts", entry.Attempts,
			"error", attemptErr,
		)
	} else {
		entry.NextAttemptAt = now.Add(retryDelay(w.cfg.BaseBackoff, entry.Attempts))
		logger.WarnContext(ctx, "deferred record retry scheduled",
			"attempts", entry.Attempts,
			"next_attempt_at", entry.NextAttemptAt,
			"error", attemptErr,
		)
	}
	if err := w.store.Update(ctx, entry); err != nil {
		return false, fmt.Errorf("update entry %s: %w", entry.ID, err)
	}
	return false, nil
}

func (w *Worker) persist(ctx context.Context, entry Entry, rec transaction.Record) error {
	if entry.Kind != KindRecordPersist {
		return fmt.Errorf("entry kind %s is not retryable", entry.Kind)
	}
	err := w.records.Create(ctx, rec)
	if err == nil || errors.Is(err, transaction.ErrDuplicate) {
		return nil
	}
	return err
}
