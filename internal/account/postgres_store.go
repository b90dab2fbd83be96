package account

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

const uniqueViolation = "23505"

// PostgresStore keeps accounts in PostgreSQL. Conditional adjustments are a
// single UPDATE so the check and the write cannot interleave with others.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts an account record.
func (s *PostgresStore) Create(ctx context.Context, acc Account) error {
	id, err := uuid.Parse(acc.ID)
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO accounts (id, name, balance, created_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4, $5)`, id, acc.Name, acc.Balance.String(), acc.CreatedAt.UTC(), acc.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Get fetches an account by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	accID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, name, balance::text, created_at, updated_at
        FROM accounts WHERE id = $1`, accID)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("select account: %w", err)
	}
	return acc, nil
}

// List returns every account ordered by name.
func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, balance::text, created_at, updated_at
        FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()
	out := make([]Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

// ConditionalAdjustBalance adds delta when the resulting balance satisfies pred.
func (s *PostgresStore) ConditionalAdjustBalance(ctx context.Context, id string, delta decimal.Decimal, pred Predicate) (Account, error) {
	accID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	const query = `
        UPDATE accounts
        SET balance = balance + $2::numeric, updated_at = now()
        WHERE id = $1 AND balance + $2::numeric >= $3::numeric
        RETURNING id, name, balance::text, created_at, updated_at`
	acc, err := scanAccount(s.db.QueryRow(ctx, query, accID, delta.String(), pred.Floor().String()))
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("adjust balance: %w", err)
	}

	// Accounts are never deleted, so existence observed after the failed
	// update also held during it.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accID).Scan(&exists); err != nil {
		return Account{}, fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return Account{}, ErrNotFound
	}
	return Account{}, ErrPredicateFailed
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id      uuid.UUID
		acc     Account
		balance string
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&id, &acc.Name, &balance, &created, &updated); err != nil {
		return Account{}, err
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	acc.ID = id.String()
	acc.Balance = amount
	acc.CreatedAt = created.UTC()
	acc.UpdatedAt = updated.UTC()
	return acc, nil
}
