package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Account roles. The set is open: the gate logic compares strings so new
// roles can be added without touching the middleware.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// ErrAccountNotFound is returned when no account matches the lookup.
var ErrAccountNotFound = errors.New("account not found")

// Account is an administrative user. The password hash never leaves this
// package: API projections are built via Projection.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         string
	Active       bool
	LastLoginAt  *time.Time
}

// Projection is the account shape exposed to API callers.
type Projection struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Projection returns the caller-facing view of the account.
func (a *Account) Projection() Projection {
	return Projection{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}

// CredentialStore is the read/update boundary the auth layer needs from the
// accounts table. There is no create or delete: accounts are provisioned
// out-of-band and deactivated, never removed.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64) error
}

// NormalizeEmail trims and lowercases an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Store is the Postgres-backed CredentialStore.
type Store struct {
	db *sql.DB
}

// NewStore wraps the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT id, email, password_hash, name, role, active, last_login_at
	          FROM accounts WHERE lower(email) = $1`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Account, error) {
	query := `SELECT id, email, password_hash, name, role, active, last_login_at
	          FROM accounts WHERE id = $1`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) scanAccount(row *sql.Row) (*Account, error) {
	acc := &Account{}
	var lastLogin sql.NullTime
	err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &acc.Role, &acc.Active, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lastLogin.Valid {
		acc.LastLoginAt = &lastLogin.Time
	}
	return acc, nil
}
