package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// EventTransactionUpdate is the event name observers subscribe to.
const EventTransactionUpdate = "transaction_update"

// Publisher delivers completed transactions to downstream observers.
type Publisher interface {
	Publish(ctx context.Context, view transaction.View) error
}

// LoggerPublisher is a stub implementation that writes events to the logger.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher stub.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish writes the event to the structured logger.
func (p *LoggerPublisher) Publish(ctx context.Context, view transaction.View) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.InfoContext(ctx, "notification",
		"event", EventTransactionUpdate,
		"transaction_id", view.ID,
		"type", string(view.Type),
		"status", string(view.Status),
		"amount", view.Amount.String(),
	)
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

// Publish delivers view to each publisher in order.
func (m Multi) Publish(ctx context.Context, view transaction.View) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, view); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, transaction.View) error { return nil }
