package repository

import (
	"context"

	"license-auth/backend/internal/accounttype/domain"
)

// Repository defines persistence for account type reference data.
type Repository interface {
	GetByName(ctx context.Context, name string) (*domain.AccountType, error)
	GetByID(ctx context.Context, id string) (*domain.AccountType, error)
	List(ctx context.Context) ([]*domain.AccountType, error)
	// Create inserts the account type, skipping silently if the name exists.
	// Used only by seeding.
	Create(ctx context.Context, t *domain.AccountType) error
}
