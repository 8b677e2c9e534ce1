package repository

import (
	"context"
	"time"

	"license-auth/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, includeInactive bool, limit, offset int32) ([]*domain.User, error)
	Search(ctx context.Context, query string, limit int32) ([]*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// BindFingerprint atomically binds fingerprint to the user if the column is
	// unset or already equal (compare-and-bind). Returns false when the user is
	// bound to a different fingerprint; the caller must not overwrite it.
	BindFingerprint(ctx context.Context, id, fingerprint string) (bool, error)
	ClearFingerprint(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	// UpdateExpiry sets expires_at in a single statement; pass nil for unlimited.
	UpdateExpiry(ctx context.Context, id string, expiresAt *time.Time) error
	UpdateAccountType(ctx context.Context, id, accountTypeID string, expiresAt *time.Time) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}
