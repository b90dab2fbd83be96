package transaction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type names the kind of balance movement a record describes.
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeTransfer   Type = "transfer"
)

// Types lists the supported movement kinds in display order.
var Types = []Type{TypeDeposit, TypeWithdrawal, TypeTransfer}

// Valid reports whether t is a supported movement kind.
func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a record. It is the only mutable field.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// JoinTypes renders the supported types for messages.
func JoinTypes() string {
	parts := make([]string, len(Types))
	for i, t := range Types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// Record is the immutable description of one applied balance movement.
type Record struct {
	ID         string          `json:"id"`
	SenderID   string          `json:"sender,omitempty"`
	ReceiverID string          `json:"receiver"`
	Amount     decimal.Decimal `json:"amount"`
	Type       Type            `json:"transactionType"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// HasSender reports whether the record names a sender.
func (r Record) HasSender() bool {
	return r.SenderID != ""
}

// View is a record with display names resolved for its parties.
type View struct {
	Record
	SenderName   string `json:"senderName,omitempty"`
	ReceiverName string `json:"receiverName,omitempty"`
}
