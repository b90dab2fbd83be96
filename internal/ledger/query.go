package ledger

import (
	"context"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// ListForAccount returns records where accountID is sender or receiver, newest first.
func (e *Engine) ListForAccount(ctx context.Context, accountID string) ([]transaction.View, error) {
	if accountID == "" {
		return nil, ValidationError("account id required")
	}
	recs, err := e.records.FindBySenderOrReceiver(ctx, accountID)
	if err != nil {
		return nil, InternalError("could not list transactions", err)
	}
	return e.resolveAll(ctx, recs), nil
}

// ListAll returns every record, newest first.
func (e *Engine) ListAll(ctx context.Context) ([]transaction.View, error) {
	recs, err := e.records.FindAll(ctx)
	if err != nil {
		return nil, InternalError("could not list transactions", err)
	}
	return e.resolveAll(ctx, recs), nil
}

func (e *Engine) resolveAll(ctx context.Context, recs []transaction.Record) []transaction.View {
	views := make([]transaction.View, len(recs))
	names := make(map[string]string)
	for i, rec := range recs {
		views[i] = e.resolveWith(ctx, rec, names)
	}
	return views
}
