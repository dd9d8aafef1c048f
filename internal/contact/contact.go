// Package contact handles contact form intake from the public site.
package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a message id does not exist.
var ErrNotFound = errors.New("contact message not found")

// Message is a contact form submission.
type Message struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Message   string    `json:"message"`
	Handled   bool      `json:"handled"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence boundary for contact messages.
type Store interface {
	Insert(ctx context.Context, m *Message) error
	List(ctx context.Context) ([]Message, error)
	MarkHandled(ctx context.Context, id int64) error
}

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, m *Message) error {
	query := `INSERT INTO contact_messages (name, email, phone, message)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, handled, created_at`
	err := s.db.QueryRowContext(ctx, query, m.Name, m.Email, m.Phone, m.Message).
		Scan(&m.ID, &m.Handled, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, phone, message, handled, created_at
		 FROM contact_messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Message, &m.Handled, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkHandled(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE contact_messages SET handled = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
