package transaction

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrNotFound is returned when no record matches the identifier.
	ErrNotFound = errors.New("transaction not found")

	// ErrDuplicate is returned when a record with the same id already exists.
	ErrDuplicate = errors.New("duplicate transaction")
)

// Store persists transaction records. Listings are ordered newest first with
// ties broken by id descending.
type Store interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Record, error)
	FindBySenderOrReceiver(ctx context.Context, accountID string) ([]Record, error)
	FindAll(ctx context.Context) ([]Record, error)
}

// SortNewestFirst orders records by creation time then id, both descending.
func SortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
}
