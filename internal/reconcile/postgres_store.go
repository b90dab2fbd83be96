package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const entryColumns = `id, kind, record_id, account_id, amount::text, payload, status, attempts, last_error, next_attempt_at, created_at, updated_at`

// PostgresStore keeps entries in the reconciliation_entries table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds an entry store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert stores a new entry.
func (s *PostgresStore) Insert(ctx context.Context, e Entry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("entry id: %w", err)
	}
	recordID, err := uuid.Parse(e.RecordID)
	if err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO reconciliation_entries
        (id, kind, record_id, account_id, amount, payload, status, attempts, last_error, next_attempt_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)`,
		id, string(e.Kind), recordID, e.AccountID, e.Amount.String(), []byte(e.Payload), string(e.Status),
		e.Attempts, e.LastError, e.NextAttemptAt.UTC(), e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert reconciliation entry: %w", err)
	}
	return nil
}

// ClaimDue leases due entries. SKIP LOCKED keeps concurrent workers apart.
func (s *PostgresStore) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Entry, error) {
	const query = `
        UPDATE reconciliation_entries
        SET next_attempt_at = $3
        WHERE id IN (
            SELECT id FROM reconciliation_entries
            WHERE status = 'pending' AND next_attempt_at <= $1
            ORDER BY next_attempt_at ASC
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + entryColumns
	rows, err := s.db.Query(ctx, query, now.UTC(), limit, now.Add(lease).UTC())
	if err != nil {
		return nil, fmt.Errorf("claim reconciliation entries: %w", err)
	}
	return collectEntries(rows)
}

// Update overwrites the mutable fields of an entry.
func (s *PostgresStore) Update(ctx context.Context, e Entry) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.db.Exec(ctx, `UPDATE reconciliation_entries
        SET status = $2, attempts = $3, last_error = $4, next_attempt_at = $5, updated_at = $6
        WHERE id = $1`,
		id, string(e.Status), e.Attempts, e.LastError, e.NextAttemptAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("update reconciliation entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns entries newest first, optionally filtered by status.
func (s *PostgresStore) List(ctx context.Context, status Status) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM reconciliation_entries`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation entries: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	out := make([]Entry, 0)
	for rows.Next() {
		var (
			e        Entry
			id       uuid.UUID
			recordID uuid.UUID
			kind     string
			amount   string
			payload  []byte
			status   string
		)
		if err := rows.Scan(&id, &kind, &recordID, &e.AccountID, &amount, &payload, &status,
			&e.Attempts, &e.LastError, &e.NextAttemptAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reconciliation entry: %w", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		e.ID = id.String()
		e.RecordID = recordID.String()
		e.Kind = Kind(kind)
		e.Status = Status(status)
		e.Amount = value
		e.Payload = payload
		e.NextAttemptAt = e.NextAttemptAt.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		e.UpdatedAt = e.UpdatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliation entries: %w", err)
	}
	return out, nil
}
