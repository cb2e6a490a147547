// Package postgres implements [authcore.UserStore] on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eamcap/authcore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the accounts table. Email uniqueness is enforced by the
// index, so concurrent registrations cannot both succeed.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	department    TEXT NOT NULL DEFAULT '',
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (lower(email));
`

const uniqueViolation = "23505"

const selectColumns = `id, email, name, password_hash, role, department, active, created_at, updated_at`

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a Postgres-backed user store.
type Store struct {
	db Querier
}

var _ authcore.UserStore = (*Store)(nil)

// New wraps an existing pool or transaction.
func New(db Querier) *Store {
	return &Store{db: db}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

// FindByEmail looks an account up by email, ignoring case.
func (s *Store) FindByEmail(ctx context.Context, email string) (authcore.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	a, err := scanAccount(row)
	if err != nil {
		return authcore.Account{}, wrapError("find account by email", err)
	}
	return a, nil
}

// FindByID returns the account with id or [authcore.ErrAccountNotFound].
func (s *Store) FindByID(ctx context.Context, id int64) (authcore.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		return authcore.Account{}, wrapError("find account by id", err)
	}
	return a, nil
}

// ExistsByEmail reports whether any account, active or not, uses email.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

// Save inserts a when a.ID is zero and updates the row otherwise.
func (s *Store) Save(ctx context.Context, a authcore.Account) (authcore.Account, error) {
	if a.ID == 0 {
		row := s.db.QueryRow(ctx, `
INSERT INTO accounts (email, name, password_hash, role, department, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+selectColumns,
			a.Email, a.Name, a.PasswordHash, a.Role, a.Department, a.Active, a.CreatedAt, a.UpdatedAt)
		out, err := scanAccount(row)
		if err != nil {
			return authcore.Account{}, wrapError("insert account", err)
		}
		return out, nil
	}

	row := s.db.QueryRow(ctx, `
UPDATE accounts
SET email = $2, name = $3, password_hash = $4, role = $5, department = $6, active = $7, updated_at = $8
WHERE id = $1
RETURNING `+selectColumns,
		a.ID, a.Email, a.Name, a.PasswordHash, a.Role, a.Department, a.Active, a.UpdatedAt)
	out, err := scanAccount(row)
	if err != nil {
		return authcore.Account{}, wrapError("update account", err)
	}
	return out, nil
}

func scanAccount(row pgx.Row) (authcore.Account, error) {
	var a authcore.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&a.Role,
		&a.Department,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func wrapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return authcore.ErrAccountNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return authcore.ErrDuplicateEmail
	}
	return fmt.Errorf("%s: %w", op, err)
}
