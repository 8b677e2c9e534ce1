package repository

import (
	"context"
	"database/sql"

	"license-auth/backend/internal/device/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a device repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// BindWithinLimit runs the capacity check and insert as one statement under a
// transaction-scoped advisory lock on the user id, so two concurrent logins
// cannot both slip under the bound. Membership of an existing fingerprint is
// idempotent via the (user_id, fingerprint) unique constraint.
func (r *PostgresRepository) BindWithinLimit(ctx context.Context, d *domain.Device, maxDevices int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, d.UserID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_devices (id, user_id, fingerprint, created_at)
		 SELECT $1, $2, $3, $4
		 WHERE (SELECT count(*) FROM user_devices WHERE user_id = $2) < $5
		 ON CONFLICT (user_id, fingerprint) DO NOTHING`,
		d.ID, d.UserID, d.Fingerprint, d.CreatedAt, maxDevices); err != nil {
		return false, err
	}

	var member bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_devices WHERE user_id = $1 AND fingerprint = $2)`,
		d.UserID, d.Fingerprint).Scan(&member); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return member, nil
}

// ListByUser returns the user's allowed fingerprints ordered by binding time.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, fingerprint, created_at FROM user_devices WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.Fingerprint, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// DeleteByUser clears the user's device set. Used by the admin device reset.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_devices WHERE user_id = $1`, userID)
	return err
}
