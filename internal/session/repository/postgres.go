package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"license-auth/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, session_token, device_fingerprint, expires_at, created_at, last_activity, is_active`

// GetByToken returns the session for token, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE session_token = $1`, token)
	s, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateExclusive deactivates prior active sessions for the (user, fingerprint)
// pair and inserts the new session in one transaction, so no window exists in
// which two sessions are simultaneously active for the pair.
func (r *PostgresRepository) CreateExclusive(ctx context.Context, s *domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = false
		 WHERE user_id = $1 AND device_fingerprint = $2 AND is_active = true`,
		s.UserID, s.DeviceFingerprint); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_sessions (id, user_id, session_token, device_fingerprint, expires_at, created_at, last_activity, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.SessionToken, s.DeviceFingerprint,
		s.ExpiresAt, s.CreatedAt, s.LastActivity, s.IsActive); err != nil {
		return err
	}
	return tx.Commit()
}

// RevokeByToken marks the session with the given token as inactive.
// Unknown tokens are a no-op.
func (r *PostgresRepository) RevokeByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = false WHERE session_token = $1`, token)
	return err
}

// RevokeAllByUser marks all sessions for the given user as inactive.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET is_active = false WHERE user_id = $1`, userID)
	return err
}

// UpdateLastActivity sets the session's last-activity timestamp for the given token.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, token string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET last_activity = $2 WHERE session_token = $1`, token, at)
	return err
}

// ExtendExpiry pushes expires_at for an active session with the given token.
func (r *PostgresRepository) ExtendExpiry(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET expires_at = $2 WHERE session_token = $1 AND is_active = true`,
		token, expiresAt)
	return err
}

// ListActive returns non-expired active sessions ordered by last activity,
// paginated by limit and offset. Consumed by the admin console.
func (r *PostgresRepository) ListActive(ctx context.Context, limit, offset int32) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions
		 WHERE is_active = true AND expires_at > now()
		 ORDER BY last_activity DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.SessionToken, &s.DeviceFingerprint,
		&s.ExpiresAt, &s.CreatedAt, &s.LastActivity, &s.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
