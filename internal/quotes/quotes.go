// Package quotes implements the public quote calculator and the admin quote
// overview. A submitted request is priced deterministically, persisted and
// handed to the job layer for PDF generation.
package quotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a quote id does not exist.
var ErrNotFound = errors.New("quote not found")

// Quote statuses.
const (
	StatusNew      = "new"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
)

// Quote is a persisted quote request with its calculated price.
type Quote struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	DwellingArea  int       `json:"dwellingArea"`
	Insulation    string    `json:"insulation"`
	ProductLine   string    `json:"productLine"`
	CapacityKW    float64   `json:"capacityKw"`
	SubtotalCents int64     `json:"subtotalCents"`
	VATCents      int64     `json:"vatCents"`
	TotalCents    int64     `json:"totalCents"`
	Status        string    `json:"status"`
	PDFPath       string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewReference generates an opaque quote reference like OF-2026-3F91A2C4.
func NewReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("OF-%d-%s", now.Year(), suffix)
}

// Store is the persistence boundary for quotes.
type Store interface {
	Insert(ctx context.Context, q *Quote) error
	List(ctx context.Context) ([]Quote, error)
	GetByID(ctx context.Context, id int64) (*Quote, error)
	SetStatus(ctx context.Context, id int64, status string) error
	SetPDFPath(ctx context.Context, id int64, path string) error
}

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, q *Quote) error {
	query := `INSERT INTO quotes
	            (reference, name, email, phone, dwelling_area, insulation,
	             product_line, capacity_kw, subtotal_cents, vat_cents, total_cents, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		q.Reference, q.Name, q.Email, q.Phone, q.DwellingArea, q.Insulation,
		q.ProductLine, q.CapacityKW, q.SubtotalCents, q.VATCents, q.TotalCents, q.Status).
		Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Quote, error) {
	rows, err := s.db.QueryContext(ctx, selectQuote+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetByID(ctx context.Context, id int64) (*Quote, error) {
	rows, err := s.db.QueryContext(ctx, selectQuote+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanQuote(rows)
}

func (s *SQLStore) SetStatus(ctx context.Context, id int64, status string) error {
	return s.updateColumn(ctx, id, `UPDATE quotes SET status = $1 WHERE id = $2`, status)
}

func (s *SQLStore) SetPDFPath(ctx context.Context, id int64, path string) error {
	return s.updateColumn(ctx, id, `UPDATE quotes SET pdf_path = $1 WHERE id = $2`, path)
}

func (s *SQLStore) updateColumn(ctx context.Context, id int64, query, value string) error {
	res, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectQuote = `SELECT id, reference, name, email, phone, dwelling_area, insulation,
	product_line, capacity_kw, subtotal_cents, vat_cents, total_cents, status, pdf_path, created_at
	FROM quotes`

func scanQuote(rows *sql.Rows) (*Quote, error) {
	q := &Quote{}
	err := rows.Scan(&q.ID, &q.Reference, &q.Name, &q.Email, &q.Phone, &q.DwellingArea,
		&q.Insulation, &q.ProductLine, &q.CapacityKW, &q.SubtotalCents, &q.VATCents,
		&q.TotalCents, &q.Status, &q.PDFPath, &q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}
