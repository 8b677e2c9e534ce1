package repository

import (
	"context"
	"database/sql"
	"time"

	"license-auth/backend/internal/authevent/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an auth event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const eventColumns = `id, event_type, username, device_fingerprint, success, details, ip_address, timestamp`

// Create persists the auth event to the database. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuthEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_events (id, event_type, username, device_fingerprint, success, details, ip_address, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.EventType, nullStr(e.Username), nullStr(e.DeviceFingerprint),
		e.Success, nullStr(e.Details), nullStr(e.IPAddress), e.Timestamp)
	return err
}

// ListRecent returns auth events across all users, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit, offset int32) ([]*domain.AuthEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM auth_events ORDER BY timestamp DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListByUsername returns auth events recorded for the given username, newest first.
func (r *PostgresRepository) ListByUsername(ctx context.Context, username string, limit, offset int32) ([]*domain.AuthEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM auth_events WHERE username = $1
		 ORDER BY timestamp DESC LIMIT $2 OFFSET $3`, username, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// CountSince returns success and failure counts for the given event type since
// the given time.
func (r *PostgresRepository) CountSince(ctx context.Context, eventType string, since time.Time) (int64, int64, error) {
	var successes, failures int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE success), COUNT(*) FILTER (WHERE NOT success)
		 FROM auth_events WHERE event_type = $1 AND timestamp >= $2`, eventType, since).
		Scan(&successes, &failures)
	if err != nil {
		return 0, 0, err
	}
	return successes, failures, nil
}

func collectEvents(rows *sql.Rows) ([]*domain.AuthEvent, error) {
	var out []*domain.AuthEvent
	for rows.Next() {
		var e domain.AuthEvent
		var username, fingerprint, details, ip sql.NullString
		err := rows.Scan(&e.ID, &e.EventType, &username, &fingerprint, &e.Success, &details, &ip, &e.Timestamp)
		if err != nil {
			return nil, err
		}
		e.Username = username.String
		e.DeviceFingerprint = fingerprint.String
		e.Details = details.String
		e.IPAddress = ip.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
