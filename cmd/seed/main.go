// seed inserts the account type reference data and, when SEED_ADMIN_USERNAME
// and SEED_ADMIN_PASSWORD are set, a bootstrap admin. Idempotent: existing
// rows are left alone.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	accounttypedomain "license-auth/backend/internal/accounttype/domain"
	accounttyperepo "license-auth/backend/internal/accounttype/repository"
	admindomain "license-auth/backend/internal/admin/domain"
	adminrepo "license-auth/backend/internal/admin/repository"
	"license-auth/backend/internal/auth"
	"license-auth/backend/internal/config"
	"license-auth/backend/internal/db"
	"license-auth/backend/internal/security"
)

const trialDurationDays = 30

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seedAccountTypes(ctx, accounttyperepo.NewPostgresRepository(conn)); err != nil {
		log.Fatalf("seed account types: %v", err)
	}
	if err := seedAdmin(ctx, cfg, adminrepo.NewPostgresRepository(conn)); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	log.Println("seed complete")
}

func seedAccountTypes(ctx context.Context, types accounttyperepo.Repository) error {
	trialDays := trialDurationDays
	now := time.Now().UTC()
	seed := []*accounttypedomain.AccountType{
		{
			ID:           uuid.New().String(),
			Name:         accounttypedomain.NameTrial,
			DurationDays: &trialDays,
			MaxDevices:   1,
			Features:     []byte(`{"api_usage_limit": 1000}`),
			CreatedAt:    now,
		},
		{
			ID:         uuid.New().String(),
			Name:       accounttypedomain.NamePaid,
			MaxDevices: 1,
			Features:   []byte(`{"api_usage_limit": null}`),
			CreatedAt:  now,
		},
	}
	for _, t := range seed {
		// Create skips silently when the name already exists.
		if err := types.Create(ctx, t); err != nil {
			return err
		}
		log.Printf("account type %q ensured", t.Name)
	}
	return nil
}

func seedAdmin(ctx context.Context, cfg *config.Config, admins adminrepo.Repository) error {
	if cfg.SeedAdminUsername == "" || cfg.SeedAdminPassword == "" {
		log.Println("SEED_ADMIN_USERNAME/SEED_ADMIN_PASSWORD not set; skipping admin bootstrap")
		return nil
	}
	existing, err := admins.GetByUsername(ctx, cfg.SeedAdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("admin %q already exists; skipping", cfg.SeedAdminUsername)
		return nil
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(cfg.SeedAdminPassword))
	if err != nil {
		return err
	}
	admin := &admindomain.AdminUser{
		ID:           uuid.New().String(),
		Username:     cfg.SeedAdminUsername,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
	if err := admins.Create(ctx, admin); err != nil {
		// A concurrent seed run may have won the insert.
		if errors.Is(err, auth.ErrConflict) {
			log.Printf("admin %q already exists; skipping", cfg.SeedAdminUsername)
			return nil
		}
		return err
	}
	log.Printf("admin %q created", cfg.SeedAdminUsername)
	return nil
}
