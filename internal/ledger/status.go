package ledger

import (
	"context"
	"errors"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// UpdateStatus relabels a record. It never moves money; a refund's balance
// effect is a separate submitted transaction.
func (e *Engine) UpdateStatus(ctx context.Context, id string, status transaction.Status) (transaction.View, error) {
	if !status.Valid() {
		return transaction.View{}, ValidationError("invalid status: must be one of pending, completed, failed, refunded")
	}
	if id == "" {
		return transaction.View{}, ValidationError("transaction id required")
	}
	rec, err := e.records.UpdateStatus(ctx, id, status)
	if errors.Is(err, transaction.ErrNotFound) {
		return transaction.View{}, NotFoundError("transaction not found", err)
	}
	if err != nil {
		return transaction.View{}, InternalError("could not update transaction", err)
	}
	e.logger.InfoContext(ctx, "transaction status updated", "transaction_id", id, "status", string(status))
	return e.resolve(ctx, rec), nil
}
