// Package reviews handles customer review intake and moderation. Submissions
// arrive unapproved through the public site and only show up publicly after
// a moderator approves them.
package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a review id does not exist.
var ErrNotFound = errors.New("review not found")

// Review is a customer review.
type Review struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence boundary for reviews.
type Store interface {
	Insert(ctx context.Context, r *Review) error
	ListApproved(ctx context.Context) ([]Review, error)
	ListAll(ctx context.Context) ([]Review, error)
	SetApproved(ctx context.Context, id int64, approved bool) error
	Delete(ctx context.Context, id int64) error
}

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, r *Review) error {
	query := `INSERT INTO reviews (name, email, rating, body)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, approved, created_at`
	err := s.db.QueryRowContext(ctx, query, r.Name, r.Email, r.Rating, r.Body).
		Scan(&r.ID, &r.Approved, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) ListApproved(ctx context.Context) ([]Review, error) {
	return s.list(ctx, `SELECT id, name, email, rating, body, approved, created_at
	                    FROM reviews WHERE approved ORDER BY created_at DESC`)
}

func (s *SQLStore) ListAll(ctx context.Context) ([]Review, error) {
	return s.list(ctx, `SELECT id, name, email, rating, body, approved, created_at
	                    FROM reviews ORDER BY created_at DESC`)
}

func (s *SQLStore) list(ctx context.Context, query string) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Rating, &r.Body, &r.Approved, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetApproved(ctx context.Context, id int64, approved bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reviews SET approved = $1 WHERE id = $2`, approved, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
