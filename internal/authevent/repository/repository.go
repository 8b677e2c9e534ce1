package repository

import (
	"context"
	"time"

	"license-auth/backend/internal/authevent/domain"
)

// Repository defines persistence for authentication events. Append and read only.
type Repository interface {
	Create(ctx context.Context, e *domain.AuthEvent) error
	ListRecent(ctx context.Context, limit, offset int32) ([]*domain.AuthEvent, error)
	ListByUsername(ctx context.Context, username string, limit, offset int32) ([]*domain.AuthEvent, error)
	// CountSince returns the number of events of the given type since the
	// given time, split into successes and failures.
	CountSince(ctx context.Context, eventType string, since time.Time) (successes, failures int64, err error)
}
