package repository

import (
	"context"
	"time"

	"license-auth/backend/internal/admin/domain"
)

// Repository defines persistence for admin users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error)
	Create(ctx context.Context, a *domain.AdminUser) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
}
