package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// source driver
)

// MigrationConfig holds configuration for running migrations.
type MigrationConfig struct {
	// MigrationsPath is the migrations directory (e.g. "file://db/migrations")
	MigrationsPath string
	// DatabaseName is used by golang-migrate for internal tracking (default: "main")
	DatabaseName string
}

// DefaultMigrationConfig returns the default migration configuration.
func DefaultMigrationConfig(migrationsPath string) MigrationConfig {
	return MigrationConfig{
		MigrationsPath: migrationsPath,
		DatabaseName:   "main",
	}
}

// MigrateUp applies all pending up migrations. A database that is already
// current is not an error (migrate.ErrNoChange is swallowed).
//
// IMPORTANT: golang-migrate takes ownership of db and closes it when the
// migrator closes. Do not use the connection afterwards; prefer
// MigrateUpFromPath which manages its own connection.
func MigrateUp(db *sql.DB, migrationsPath string) error {
	m, err := newMigrator(db, DefaultMigrationConfig(migrationsPath))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// MigrateUpFromPath applies all pending migrations, opening and closing its
// own connection to the database at dbPath.
func MigrateUpFromPath(dbPath, migrationsPath string) error {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	return MigrateUp(db, migrationsPath)
}

// MigrateDown rolls back migrations by the given number of steps, or all of
// them when steps is -1. Nothing to roll back is not an error.
//
// IMPORTANT: takes ownership of db and closes it when complete.
func MigrateDown(db *sql.DB, migrationsPath string, steps int) error {
	m, err := newMigrator(db, DefaultMigrationConfig(migrationsPath))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	var migrateErr error
	if steps == -1 {
		migrateErr = m.Down()
	} else {
		migrateErr = m.Steps(-steps)
	}

	if migrateErr != nil {
		if errors.Is(migrateErr, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to roll back migrations: %w", migrateErr)
	}

	return nil
}

// MigrateDownFromPath rolls back migrations, managing its own connection.
func MigrateDownFromPath(dbPath, migrationsPath string, steps int) error {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	return MigrateDown(db, migrationsPath, steps)
}

// GetMigrationVersion returns the current schema version and dirty state.
// A fresh database reports version 0 and dirty false. A dirty schema means
// a migration failed partway and needs manual repair.
//
// IMPORTANT: takes ownership of db and closes it when complete.
func GetMigrationVersion(db *sql.DB, migrationsPath string) (uint, bool, error) {
	m, err := newMigrator(db, DefaultMigrationConfig(migrationsPath))
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

// GetMigrationVersionFromPath reports the schema version, managing its own
// connection. Used by the startup validation suite.
func GetMigrationVersionFromPath(dbPath, migrationsPath string) (uint, bool, error) {
	db, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database: %w", err)
	}

	return GetMigrationVersion(db, migrationsPath)
}

// newMigrator builds a migrate.Migrate over the given connection.
// The migrator owns the connection; migrator.Close() closes it too.
func newMigrator(db *sql.DB, config MigrationConfig) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if config.MigrationsPath == "" {
		return nil, errors.New("migrations path is required")
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{
		DatabaseName: config.DatabaseName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		config.MigrationsPath,
		"sqlite",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}
