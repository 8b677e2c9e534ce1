package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// Used by the migrate runner (cmd/migrate) to apply the schema as an explicit,
// idempotent deployment step instead of create-on-first-boot.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
