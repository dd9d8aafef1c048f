// Package installations tracks installed equipment. Every installation gets
// an opaque lookup code printed as a QR sticker on the unit; scanning it
// opens a public page with the install date and the next maintenance due.
package installations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an installation does not exist.
var ErrNotFound = errors.New("installation not found")

// Installation is a registered piece of installed equipment.
type Installation struct {
	ID                int64     `json:"id"`
	LookupCode        string    `json:"lookupCode"`
	CustomerName      string    `json:"customerName"`
	Address           string    `json:"address"`
	EquipmentModel    string    `json:"equipmentModel"`
	SerialNumber      string    `json:"serialNumber,omitempty"`
	InstalledOn       time.Time `json:"installedOn"`
	MaintenanceMonths int       `json:"maintenanceMonths"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PublicView is the projection returned by the QR lookup endpoint. It
// deliberately omits the customer identity and address.
type PublicView struct {
	EquipmentModel  string    `json:"equipmentModel"`
	InstalledOn     time.Time `json:"installedOn"`
	NextMaintenance time.Time `json:"nextMaintenance"`
}

// Public returns the lookup projection for the installation.
func (i *Installation) Public() PublicView {
	next := i.InstalledOn
	interval := i.MaintenanceMonths
	if interval <= 0 {
		interval = 12
	}
	now := time.Now()
	for !next.After(now) {
		next = next.AddDate(0, interval, 0)
	}
	return PublicView{
		EquipmentModel:  i.EquipmentModel,
		InstalledOn:     i.InstalledOn,
		NextMaintenance: next,
	}
}

// NewLookupCode generates an opaque, URL-safe lookup code.
func NewLookupCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// Store is the persistence boundary for installations.
type Store interface {
	Insert(ctx context.Context, i *Installation) error
	Update(ctx context.Context, i *Installation) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Installation, error)
	GetByID(ctx context.Context, id int64) (*Installation, error)
	GetByLookupCode(ctx context.Context, code string) (*Installation, error)
}

// SQLStore is the Postgres-backed Store.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const selectInstallation = `SELECT id, lookup_code, customer_name, address, equipment_model,
	serial_number, installed_on, maintenance_months, notes, created_at
	FROM installations`

func (s *SQLStore) Insert(ctx context.Context, i *Installation) error {
	query := `INSERT INTO installations
	            (lookup_code, customer_name, address, equipment_model, serial_number,
	             installed_on, maintenance_months, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query,
		i.LookupCode, i.CustomerName, i.Address, i.EquipmentModel, i.SerialNumber,
		i.InstalledOn, i.MaintenanceMonths, i.Notes).
		Scan(&i.ID, &i.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, i *Installation) error {
	query := `UPDATE installations
	          SET customer_name = $1, address = $2, equipment_model = $3,
	              serial_number = $4, installed_on = $5, maintenance_months = $6, notes = $7
	          WHERE id = $8`
	res, err := s.db.ExecContext(ctx, query,
		i.CustomerName, i.Address, i.EquipmentModel, i.SerialNumber,
		i.InstalledOn, i.MaintenanceMonths, i.Notes, i.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM installations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Installation, error) {
	rows, err := s.db.QueryContext(ctx, selectInstallation+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []Installation
	for rows.Next() {
		i, err := scanInstallation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetByID(ctx context.Context, id int64) (*Installation, error) {
	return s.getOne(ctx, selectInstallation+` WHERE id = $1`, id)
}

func (s *SQLStore) GetByLookupCode(ctx context.Context, code string) (*Installation, error) {
	return s.getOne(ctx, selectInstallation+` WHERE lookup_code = $1`, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *SQLStore) getOne(ctx context.Context, query string, arg any) (*Installation, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
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
	return scanInstallation(rows)
}

func scanInstallation(rows *sql.Rows) (*Installation, error) {
	i := &Installation{}
	err := rows.Scan(&i.ID, &i.LookupCode, &i.CustomerName, &i.Address, &i.EquipmentModel,
		&i.SerialNumber, &i.InstalledOn, &i.MaintenanceMonths, &i.Notes, &i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return i, nil
}
