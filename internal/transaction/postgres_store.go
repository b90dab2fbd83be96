package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolation = "23505"
	recordColumns   = `id, sender_id, receiver_id, amount::text, type, status, created_at`
)

// PostgresStore keeps transaction records in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a record store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a record.
func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	receiver, err := uuid.Parse(rec.ReceiverID)
	if err != nil {
		return fmt.Errorf("receiver id: %w", err)
	}
	var sender *uuid.UUID
	if rec.HasSender() {
		parsed, err := uuid.Parse(rec.SenderID)
		if err != nil {
			return fmt.Errorf("sender id: %w", err)
		}
		sender = &parsed
	}

	_, err = s.db.Exec(ctx, `INSERT INTO transactions (id, sender_id, receiver_id, amount, type, status, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		id, sender, receiver, rec.Amount.String(), string(rec.Type), string(rec.Status), rec.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a record by identifier.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Record, error) {
	recID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := scanRecord(s.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM transactions WHERE id = $1`, recID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select transaction: %w", err)
	}
	return rec, nil
}

// UpdateStatus overwrites the status of an existing record.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) (Record, error) {
	recID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := scanRecord(s.db.QueryRow(ctx, `UPDATE transactions SET status = $2 WHERE id = $1
        RETURNING `+recordColumns, recID, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("update transaction status: %w", err)
	}
	return rec, nil
}

// FindBySenderOrReceiver lists records where accountID is either party.
func (s *PostgresStore) FindBySenderOrReceiver(ctx context.Context, accountID string) ([]Record, error) {
	accID, err := uuid.Parse(accountID)
	if err != nil {
		return []Record{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+recordColumns+` FROM transactions
        WHERE sender_id = $1 OR receiver_id = $1
        ORDER BY created_at DESC, id DESC`, accID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return collectRecords(rows)
}

// FindAll lists every record.
func (s *PostgresStore) FindAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, `SELECT `+recordColumns+` FROM transactions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		id       uuid.UUID
		sender   *uuid.UUID
		receiver uuid.UUID
		amount   string
		kind     string
		status   string
		created  time.Time
	)
	if err := row.Scan(&id, &sender, &receiver, &amount, &kind, &status, &created); err != nil {
		return Record{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Record{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	rec := Record{
		ID:         id.String(),
		ReceiverID: receiver.String(),
		Amount:     value,
		Type:       Type(kind),
		Status:     Status(status),
		CreatedAt:  created.UTC(),
	}
	if sender != nil {
		rec.SenderID = sender.String()
	}
	return rec, nil
}
