// Package migration wraps golang-migrate for the schema lifecycle of the
// ledger tables.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator applies the SQL migrations under migrations/ to a PostgreSQL
// database
type Migrator struct {
	migrate *migrate.Migrate
	log     *zap.Logger
}

// New creates a Migrator on an open database handle
func New(db *sql.DB, migrationsPath string, log *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, log: log}, nil
}

// Up applies all pending migrations
func (m *Migrator) Up() error {
	m.log.Info("applying migrations")

	err := m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return m.logVersion("migrations applied")
}

// Down rolls back all migrations
func (m *Migrator) Down() error {
	m.log.Info("rolling back all migrations")

	err := m.migrate.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}

	m.log.Info("all migrations rolled back")
	return nil
}

// Steps applies n migrations, negative n rolls back
func (m *Migrator) Steps(n int) error {
	m.log.Info("applying migration steps", zap.Int("steps", n))

	err := m.migrate.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate steps: %w", err)
	}
	return m.logVersion("migration steps applied")
}

// GoTo migrates to a specific version
func (m *Migrator) GoTo(version uint) error {
	m.log.Info("migrating to version", zap.Uint("target_version", version))

	err := m.migrate.Migrate(version)
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("already at target version")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}

	m.log.Info("migrated to version", zap.Uint("version", version))
	return nil
}

// Version returns the current schema version. A fresh database reports
// version 0, not an error.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running migrations. Only
// for repairing a dirty schema state.
func (m *Migrator) Force(version int) error {
	m.log.Warn("forcing migration version", zap.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop destroys every table in the database
func (m *Migrator) Drop() error {
	m.log.Warn("dropping all tables")

	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	return nil
}

// Close releases the migrator's source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

func (m *Migrator) logVersion(msg string) error {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	m.log.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
