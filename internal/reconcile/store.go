package reconcile

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when updating an entry that does not exist.
var ErrNotFound = errors.New("reconciliation entry not found")

// Store persists reconciliation entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	// ClaimDue returns up to limit pending entries due at now and pushes their
	// next attempt out by lease so concurrent workers skip them.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Entry, error)
	Update(ctx context.Context, e Entry) error
	// List returns entries newest first. An empty status lists every entry.
	List(ctx context.Context, status Status) ([]Entry, error)
}
