package repository

import (
	"context"

	"license-auth/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs. Append and read only.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByAdmin(ctx context.Context, adminID string, limit, offset int32) ([]*domain.AuditLog, error)
	ListRecent(ctx context.Context, limit, offset int32) ([]*domain.AuditLog, error)
}
