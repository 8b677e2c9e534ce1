package repository

import (
	"context"
	"database/sql"
	"errors"

	"license-auth/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const auditColumns = `id, admin_id, action, target_type, target_id, details, ip_address, created_at`

// Create persists the audit log to the database. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, admin_id, action, target_type, target_id, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, nullStr(a.AdminID), a.Action, nullStr(a.TargetType), nullStr(a.TargetID),
		nullStr(a.Details), nullStr(a.IPAddress), a.CreatedAt)
	return err
}

// ListByAdmin returns audit logs for the given admin, newest first.
func (r *PostgresRepository) ListByAdmin(ctx context.Context, adminID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_logs WHERE admin_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, adminID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditLogs(rows)
}

// ListRecent returns audit logs across all admins, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAuditLogs(rows)
}

func collectAuditLogs(rows *sql.Rows) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var adminID, targetType, targetID, details, ip sql.NullString
		err := rows.Scan(&a.ID, &adminID, &a.Action, &targetType, &targetID, &details, &ip, &a.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		a.AdminID = adminID.String
		a.TargetType = targetType.String
		a.TargetID = targetID.String
		a.Details = details.String
		a.IPAddress = ip.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
