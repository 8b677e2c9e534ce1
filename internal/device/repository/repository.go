package repository

import (
	"context"

	"license-auth/backend/internal/device/domain"
)

// Repository defines persistence for the bounded device set.
type Repository interface {
	// BindWithinLimit inserts (userID, fingerprint) only while the user's set
	// holds fewer than maxDevices entries; re-inserting an existing member is a
	// no-op. Returns true when the fingerprint is a member afterwards.
	BindWithinLimit(ctx context.Context, d *domain.Device, maxDevices int) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Device, error)
	DeleteByUser(ctx context.Context, userID string) error
}
