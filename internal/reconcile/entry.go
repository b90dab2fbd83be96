package reconcile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// Kind identifies why an entry was written.
type Kind string

const (
	// KindRecordPersist marks a completed movement whose record could not be
	// stored. The worker retries the write.
	KindRecordPersist Kind = "record_persist"
	// KindCompensationFailed marks a debited sender whose re-credit failed.
	// These need an operator and are never retried automatically.
	KindCompensationFailed Kind = "compensation_failed"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusResolved  Status = "resolved"
	StatusEscalated Status = "escalated"
)

// ParseStatus converts raw input into a Status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusResolved, StatusEscalated:
		return s, nil
	default:
		return "", fmt.Errorf("invalid reconciliation status %q", raw)
	}
}

// Entry is one unit of reconciliation work. Payload holds the transaction
// view the entry concerns, encoded as JSON.
type Entry struct {
	ID            string          `json:"id"`
	Kind          Kind            `json:"kind"`
	RecordID      string          `json:"recordId"`
	AccountID     string          `json:"accountId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"lastError,omitempty"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// View decodes the payload.
func (e Entry) View() (transaction.View, error) {
	var view transaction.View
	if err := json.Unmarshal(e.Payload, &view); err != nil {
		return transaction.View{}, fmt.Errorf("decode entry %s payload: %w", e.ID, err)
	}
	return view, nil
}
