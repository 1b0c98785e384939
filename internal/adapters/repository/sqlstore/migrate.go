package sqlstore

import (
	"context"
	"fmt"

	"github.com/ottomillrath/goose/v2"
)

// gooseService scopes this service's rows in the shared goose version table.
const gooseService = "teamalloc"

// Migrate creates or updates the schema. Tables come from gorm AutoMigrate;
// Postgres-only objects (partial indexes, views) come from goose migrations:
// the Go ones registered in this package plus SQL files in MigrationsDir.
func (s *Store) Migrate(ctx context.Context, migrationsDir string) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&universityRow{}, &studentRow{}, &teamRow{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if s.dialect != Postgres || migrationsDir == "" {
		return nil
	}
	if err := goose.SetDialect(string(Postgres)); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Run("up", db, gooseService, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
