package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// schemaTable holds the migration state next to the content graph tables.
const schemaTable = "soup_schema_migrations"

//go:embed migrations/*.sql
var schemaFiles embed.FS

// RunMigrations brings the content graph schema up to date and returns the
// schema version it ended on and whether that version is dirty.
func RunMigrations(db *DB) (uint, bool, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}

	before, _, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("failed to read content graph schema version: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to migrate content graph schema: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read content graph schema version: %w", err)
	}

	if version != before {
		slog.Info("Content graph schema migrated", "from", before, "to", version)
	}
	if dirty {
		slog.Warn("Content graph schema is dirty", "version", version)
	}

	return version, dirty, nil
}

func newMigrator(db *DB) (*migrate.Migrate, error) {
	files, err := iofs.New(schemaFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open schema files: %w", err)
	}

	target, err := sqlite.WithInstance(db.DB, &sqlite.Config{MigrationsTable: schemaTable})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare schema target: %w", err)
	}

	migrator, err := migrate.NewWithInstance("schema", files, "sqlite", target)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema migrator: %w", err)
	}
	return migrator, nil
}
