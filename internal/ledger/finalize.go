package ledger

import (
	"context"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// finalize stores the record of an applied mutation and publishes it. The
// mutation already happened, so the write runs detached from the caller.
func (e *Engine) finalize(ctx context.Context, rec transaction.Record) (transaction.View, error) {
	view := e.resolve(ctx, rec)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.persistTimeout)
	defer cancel()

	if err := e.records.Create(persistCtx, rec); err != nil {
		if deferErr := e.reconciler.DeferRecord(persistCtx, view, err); deferErr != nil {
			e.logger.ErrorContext(ctx, "transaction record lost",
				"alert", true,
				"transaction_id", rec.ID,
				"sender_id", rec.SenderID,
				"receiver_id", rec.ReceiverID,
				"amount", rec.Amount.String(),
				"type", string(rec.Type),
				"created_at", rec.CreatedAt,
				"error", err,
				"reconcile_error", deferErr,
			)
			return transaction.View{}, UnrecordedError(err)
		}
		view.Status = transaction.StatusPending
		return view, nil
	}

	e.logger.InfoContext(ctx, "transaction completed",
		"transaction_id", rec.ID,
		"type", string(rec.Type),
		"amount", rec.Amount.String(),
	)
	_ = e.publisher.Publish(ctx, view)
	return view, nil
}

// resolve fills in display names. Lookups are read-only and failures leave
// the name empty.
func (e *Engine) resolve(ctx context.Context, rec transaction.Record) transaction.View {
	return e.resolveWith(ctx, rec, make(map[string]string, 2))
}

// resolveWith is resolve with a name cache shared across records.
func (e *Engine) resolveWith(ctx context.Context, rec transaction.Record, names map[string]string) transaction.View {
	view := transaction.View{Record: rec}
	lookup := func(id string) string {
		if id == "" {
			return ""
		}
		if name, ok := names[id]; ok {
			return name
		}
		acc, err := e.accounts.Get(ctx, id)
		if err != nil {
			e.logger.DebugContext(ctx, "name lookup failed", "account_id", id, "error", err)
			return ""
		}
		names[id] = acc.Name
		return acc.Name
	}
	view.SenderName = lookup(rec.SenderID)
	view.ReceiverName = lookup(rec.ReceiverID)
	return view
}
