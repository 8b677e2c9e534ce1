package repository

import (
	"context"
	"database/sql"
	"errors"

	"license-auth/backend/internal/accounttype/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account type repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountTypeColumns = `id, name, duration_days, max_devices, features, created_at`

// GetByName returns the account type for name, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.AccountType, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountTypeColumns+` FROM account_types WHERE name = $1`, name)
	return scanAccountType(row)
}

// GetByID returns the account type for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AccountType, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountTypeColumns+` FROM account_types WHERE id = $1`, id)
	return scanAccountType(row)
}

// List returns all account types ordered by name. Returns (nil, error) only on database errors.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.AccountType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountTypeColumns+` FROM account_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AccountType
	for rows.Next() {
		t, err := scanAccountType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts the account type; existing names are left untouched.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.AccountType) error {
	duration := sql.NullInt32{}
	if t.DurationDays != nil {
		duration = sql.NullInt32{Int32: int32(*t.DurationDays), Valid: true}
	}
	features := t.Features
	if len(features) == 0 {
		features = []byte(`{}`)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO account_types (id, name, duration_days, max_devices, features, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO NOTHING`,
		t.ID, t.Name, duration, t.MaxDevices, features, t.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountType(row rowScanner) (*domain.AccountType, error) {
	var t domain.AccountType
	var duration sql.NullInt32
	err := row.Scan(&t.ID, &t.Name, &duration, &t.MaxDevices, &t.Features, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if duration.Valid {
		d := int(duration.Int32)
		t.DurationDays = &d
	}
	return &t, nil
}
