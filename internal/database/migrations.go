package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const migrationDialect = "postgres"

// RunMigrations brings the catalog schema up to date, applying any pending
// goose migrations from migrationsDir.
func RunMigrations(db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	if err := goose.SetDialect(migrationDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	logger.Info("Applying catalog schema migrations", zap.String("dir", migrationsDir))

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	logger.Info("Catalog schema up to date", zap.Int64("version", version))
	return nil
}

// MigrationStatus prints the per-migration applied state, for diagnostics.
func MigrationStatus(db *sql.DB, migrationsDir string) error {
	if err := goose.SetDialect(migrationDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.Status(db, migrationsDir)
}
