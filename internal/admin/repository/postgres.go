package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"license-auth/backend/internal/admin/domain"
	"license-auth/backend/internal/auth"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an admin user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const adminColumns = `id, username, password_hash, created_at, last_login, is_active`

// GetByID returns the admin for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id)
	return scanAdmin(row)
}

// GetByUsername returns the admin for the exact username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin_users WHERE username = $1`, username)
	return scanAdmin(row)
}

// Create persists the admin to the database. The admin must have ID set.
// Returns auth.ErrConflict if the username is already taken.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AdminUser) error {
	lastLogin := sql.NullTime{}
	if a.LastLogin != nil {
		lastLogin = sql.NullTime{Time: *a.LastLogin, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_users (id, username, password_hash, created_at, last_login, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Username, a.PasswordHash, a.CreatedAt, lastLogin, a.IsActive)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return auth.ErrConflict
	}
	return err
}

// UpdateLastLogin sets the admin's last-login timestamp for the given id.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

// SetActive sets the is_active flag for the given admin id.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

func scanAdmin(row *sql.Row) (*domain.AdminUser, error) {
	var a domain.AdminUser
	var lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt, &lastLogin, &a.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastLogin.Valid {
		a.LastLogin = &lastLogin.Time
	}
	return &a, nil
}
