package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/ledgerflow/internal/account"
	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// TransferState is a step of the two-phase transfer.
type TransferState string

const (
	TransferStart                    TransferState = "start"
	TransferSenderDebited            TransferState = "sender_debited"
	TransferReceiverCredited         TransferState = "receiver_credited"
	TransferReceiverCreditFailed     TransferState = "receiver_credit_failed"
	TransferSenderCompensated        TransferState = "sender_compensated"
	TransferSenderCompensationFailed TransferState = "sender_compensation_failed"
)

// Terminal reports whether no further transition follows s.
func (s TransferState) Terminal() bool {
	switch s {
	case TransferReceiverCredited, TransferSenderCompensated, TransferSenderCompensationFailed:
		return true
	default:
		return false
	}
}

// TransferStep is passed to a TransferObserver on every transition.
type TransferStep struct {
	TransactionID string
	SenderID      string
	ReceiverID    string
	Amount        decimal.Decimal
	State         TransferState
	Err           error
}

// TransferObserver is notified synchronously as a transfer progresses.
type TransferObserver func(ctx context.Context, step TransferStep)

// transfer debits the sender, then credits the receiver. A failed credit is
// undone by re-crediting the sender on a context detached from the caller so
// cancellation cannot leave the sender debited.
func (e *Engine) transfer(ctx context.Context, id string, req SubmitRequest) (movement, error) {
	if req.SenderID == "" || req.ReceiverID == "" {
		return movement{}, ValidationError("sender and receiver required")
	}
	if req.SenderID == req.ReceiverID {
		return movement{}, PolicyError("sender and receiver cannot be same")
	}

	step := TransferStep{
		TransactionID: id,
		SenderID:      req.SenderID,
		ReceiverID:    req.ReceiverID,
		Amount:        req.Amount,
		State:         TransferStart,
	}
	e.observe(ctx, step)

	if _, err := e.debit(ctx, req.SenderID, req); err != nil {
		return movement{}, mapStoreError(err, "sender not found")
	}
	step.State = TransferSenderDebited
	e.observe(ctx, step)

	_, creditErr := e.credit(ctx, req.ReceiverID, req)
	if creditErr == nil {
		step.State = TransferReceiverCredited
		e.observe(ctx, step)
		return movement{senderID: req.SenderID, receiverID: req.ReceiverID}, nil
	}

	step.State = TransferReceiverCreditFailed
	step.Err = creditErr
	e.observe(ctx, step)

	compErr := e.compensate(ctx, req)
	if compErr == nil {
		step.State = TransferSenderCompensated
		step.Err = creditErr
		e.observe(ctx, step)
		e.logger.WarnContext(ctx, "transfer rolled back",
			"transaction_id", id,
			"sender_id", req.SenderID,
			"receiver_id", req.ReceiverID,
			"amount", req.Amount.String(),
			"error", creditErr,
		)
		if errors.Is(creditErr, account.ErrNotFound) {
			return movement{}, NotFoundError("receiver not found", creditErr)
		}
		return movement{}, InternalError("receiver credit failed", creditErr)
	}

	step.State = TransferSenderCompensationFailed
	step.Err = compErr
	e.observe(ctx, step)
	return movement{}, e.escalate(ctx, id, req, creditErr, compErr)
}

func (e *Engine) compensate(ctx context.Context, req SubmitRequest) error {
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.compensationTimeout)
	defer cancel()
	_, err := e.credit(compCtx, req.SenderID, req)
	return err
}

func (e *Engine) escalate(ctx context.Context, id string, req SubmitRequest, creditErr, compErr error) error {
	cause := errors.Join(creditErr, compErr)
	e.logger.ErrorContext(ctx, "transfer compensation failed",
		"alert", true,
		"transaction_id", id,
		"sender_id", req.SenderID,
		"receiver_id", req.ReceiverID,
		"amount", req.Amount.String(),
		"credit_error", creditErr,
		"compensation_error", compErr,
	)

	view := transaction.View{Record: transaction.Record{
		ID:         id,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Type:       transaction.TypeTransfer,
		Status:     transaction.StatusFailed,
		CreatedAt:  e.now(),
	}}
	escCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.persistTimeout)
	defer cancel()
	if err := e.reconciler.Escalate(escCtx, view, req.SenderID, req.Amount, cause); err != nil {
		e.logger.ErrorContext(ctx, "escalation not recorded",
			"alert", true,
			"transaction_id", id,
			"error", err,
		)
	}
	return FatalInconsistencyError("transfer could not be rolled back; sender "+req.SenderID+" requires reconciliation", cause)
}

func (e *Engine) observe(ctx context.Context, step TransferStep) {
	if e.observer != nil {
		e.observer(ctx, step)
	}
}
