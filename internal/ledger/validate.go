package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// SubmitRequest describes a requested balance movement. A zero Amount is
// treated as missing.
type SubmitRequest struct {
	SenderID   string           `json:"sender,omitempty"`
	ReceiverID string           `json:"receiver"`
	Amount     decimal.Decimal  `json:"amount"`
	Type       transaction.Type `json:"transactionType"`
}

const amountScale = 2

// Validate rejects malformed requests. It has no side effects.
func Validate(req SubmitRequest) error {
	if req.Amount.IsZero() || req.Type == "" {
		return ValidationError("amount and type required")
	}
	if req.Amount.IsNegative() {
		return ValidationError("amount must be positive")
	}
	if !req.Type.Valid() {
		return ValidationError("invalid transaction type: must be one of " + transaction.JoinTypes())
	}
	if !req.Amount.Equal(req.Amount.Truncate(amountScale)) {
		return ValidationError("amount must not exceed two decimal places")
	}
	return nil
}
