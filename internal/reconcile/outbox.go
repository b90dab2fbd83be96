package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// Outbox records work the ledger engine could not finish inline.
type Outbox struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewOutbox builds an outbox over store.
func NewOutbox(store Store, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DeferRecord queues a completed movement whose record write failed. The
// worker stores and publishes it later.
func (o *Outbox) DeferRecord(ctx context.Context, view transaction.View, cause error) error {
	entry, err := o.newEntry(KindRecordPersist, StatusPending, view, view.ReceiverID, view.Amount, cause)
	if err != nil {
		return err
	}
	if err := o.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("enqueue record %s: %w", view.ID, err)
	}
	o.logger.WarnContext(ctx, "record persistence deferred",
		"entry_id", entry.ID,
		"transaction_id", view.ID,
		"error", cause,
	)
	return nil
}

// Escalate stores a failed compensation for an operator. accountID is the
// account still owed amount.
func (o *Outbox) Escalate(ctx context.Context, view transaction.View, accountID string, amount decimal.Decimal, cause error) error {
	entry, err := o.newEntry(KindCompensationFailed, StatusEscalated, view, accountID, amount, cause)
	if err != nil {
		return err
	}
	if err := o.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("escalate transfer %s: %w", view.ID, err)
	}
	o.logger.ErrorContext(ctx, "compensation escalated",
		"alert", true,
		"entry_id", entry.ID,
		"transaction_id", view.ID,
		"account_id", accountID,
		"amount", amount.String(),
		"error", cause,
	)
	return nil
}

// List returns entries with the given status, or all entries when status is empty.
func (o *Outbox) List(ctx context.Context, status Status) ([]Entry, error) {
	return o.store.List(ctx, status)
}

func (o *Outbox) newEntry(kind Kind, status Status, view transaction.View, accountID string, amount decimal.Decimal, cause error) (Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, fmt.Errorf("entry id: %w", err)
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return Entry{}, fmt.Errorf("encode payload: %w", err)
	}
	now := o.now()
	entry := Entry{
		ID:            id.String(),
		Kind:          kind,
		RecordID:      view.ID,
		AccountID:     accountID,
		Amount:        amount,
		Payload:       payload,
		Status:        status,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if cause != nil {
		entry.LastError = cause.Error()
	}
	return entry, nil
}
