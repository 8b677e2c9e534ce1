package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"license-auth/backend/internal/auth"
	"license-auth/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, password_hash, account_type_id, device_fingerprint, expires_at, created_at, updated_at, is_active`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByUsername returns the user for the exact username, or nil if not found.
// Matching is case-sensitive; the column collation is not folded.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// List returns users ordered by creation date descending, paginated by limit and offset.
// Inactive users are excluded unless includeInactive is set.
func (r *PostgresRepository) List(ctx context.Context, includeInactive bool, limit, offset int32) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !includeInactive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// Search returns users whose username contains query, ordered by username.
func (r *PostgresRepository) Search(ctx context.Context, query string, limit int32) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username ILIKE '%' || $1 || '%' ORDER BY username LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

// Create persists the user to the database. The user must have ID set.
// Returns auth.ErrConflict if the username is already taken.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, account_type_id, device_fingerprint, expires_at, created_at, updated_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.PasswordHash, u.AccountTypeID,
		strPtrToNull(u.DeviceFingerprint), timePtrToNull(u.ExpiresAt),
		u.CreatedAt, u.UpdatedAt, u.IsActive)
	if isUniqueViolation(err) {
		return auth.ErrConflict
	}
	return err
}

// BindFingerprint performs the compare-and-bind in a single statement so two
// concurrent first logins cannot both observe an unbound column. The losing
// writer sees zero rows affected and must reject with a device mismatch.
func (r *PostgresRepository) BindFingerprint(ctx context.Context, id, fingerprint string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET device_fingerprint = $2, updated_at = now()
		 WHERE id = $1 AND (device_fingerprint IS NULL OR device_fingerprint = $2)`,
		id, fingerprint)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearFingerprint removes the device binding for the given user id.
func (r *PostgresRepository) ClearFingerprint(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET device_fingerprint = NULL, updated_at = now() WHERE id = $1`, id)
	return err
}

// SetActive sets the is_active flag for the given user id.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	return err
}

// UpdateExpiry sets expires_at for the given user id. Single statement, so a
// renewal can never interleave with a concurrent session issue.
func (r *PostgresRepository) UpdateExpiry(ctx context.Context, id string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET expires_at = $2, updated_at = now() WHERE id = $1`,
		id, timePtrToNull(expiresAt))
	return err
}

// UpdateAccountType changes the user's account type and recomputed expiry together.
func (r *PostgresRepository) UpdateAccountType(ctx context.Context, id, accountTypeID string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET account_type_id = $2, expires_at = $3, updated_at = now() WHERE id = $1`,
		id, accountTypeID, timePtrToNull(expiresAt))
	return err
}

// UpdatePasswordHash updates the password hash for the given user id.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var fingerprint sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AccountTypeID,
		&fingerprint, &expiresAt, &u.CreatedAt, &u.UpdatedAt, &u.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if fingerprint.Valid {
		u.DeviceFingerprint = &fingerprint.String
	}
	if expiresAt.Valid {
		u.ExpiresAt = &expiresAt.Time
	}
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]*domain.User, error) {
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func strPtrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func timePtrToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
