package ledger

import (
	"context"
	"errors"

	"github.com/congo-pay/ledgerflow/internal/account"
)

// movement names the parties of an applied mutation.
type movement struct {
	senderID   string
	receiverID string
}

type strategy func(ctx context.Context, id string, req SubmitRequest) (movement, error)

func (e *Engine) deposit(ctx context.Context, _ string, req SubmitRequest) (movement, error) {
	if req.ReceiverID == "" {
		return movement{}, ValidationError("receiver required")
	}
	if req.SenderID != "" && req.SenderID != req.ReceiverID {
		return movement{}, PolicyError("self-deposit only")
	}
	if _, err := e.credit(ctx, req.ReceiverID, req); err != nil {
		return movement{}, mapStoreError(err, "receiver not found")
	}
	return movement{senderID: req.SenderID, receiverID: req.ReceiverID}, nil
}

// withdraw debits the sender. The record names the sender as receiver too.
func (e *Engine) withdraw(ctx context.Context, _ string, req SubmitRequest) (movement, error) {
	if req.SenderID == "" {
		return movement{}, ValidationError("sender required")
	}
	if req.ReceiverID != "" && req.ReceiverID != req.SenderID {
		return movement{}, PolicyError("self-withdrawal only")
	}
	if _, err := e.debit(ctx, req.SenderID, req); err != nil {
		return movement{}, mapStoreError(err, "sender not found")
	}
	return movement{senderID: req.SenderID, receiverID: req.SenderID}, nil
}

func (e *Engine) credit(ctx context.Context, accountID string, req SubmitRequest) (account.Account, error) {
	return e.accounts.ConditionalAdjustBalance(ctx, accountID, req.Amount, account.NonNegative())
}

func (e *Engine) debit(ctx context.Context, accountID string, req SubmitRequest) (account.Account, error) {
	return e.accounts.ConditionalAdjustBalance(ctx, accountID, req.Amount.Neg(), account.NonNegative())
}

// mapStoreError translates account store failures into engine errors.
func mapStoreError(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, account.ErrPredicateFailed):
		return InsufficientFundsError()
	case errors.Is(err, account.ErrNotFound):
		return NotFoundError(notFoundMsg, err)
	default:
		return InternalError("account update failed", err)
	}
}
