package repository

import (
	"context"
	"time"

	"license-auth/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	// CreateExclusive persists the session and deactivates any prior active
	// sessions for the same (user, fingerprint) pair in one transaction.
	CreateExclusive(ctx context.Context, s *domain.Session) error
	// RevokeByToken marks the session inactive. Idempotent: revoking an unknown
	// or already-inactive token is not an error.
	RevokeByToken(ctx context.Context, token string) error
	RevokeAllByUser(ctx context.Context, userID string) error
	UpdateLastActivity(ctx context.Context, token string, at time.Time) error
	// ExtendExpiry pushes expires_at for an active session. Used only when
	// sliding expiry is configured.
	ExtendExpiry(ctx context.Context, token string, expiresAt time.Time) error
	ListActive(ctx context.Context, limit, offset int32) ([]*domain.Session, error)
}
