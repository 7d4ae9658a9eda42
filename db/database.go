// Package db persists the digital economy index dataset and the chat
// agent's conversation log in SQLite.
//
// This is the storage organism, composing:
//   - connection.go: SQLite connection with WAL mode and pragmas
//   - migrate.go: golang-migrate schema management
//   - repository.go: typed queries over the index dataset and chat log
//   - loader.go: dataset JSON to relational load
//   - async_write.go: write-behind queue for the chat log
//   - cleanup.go: chat log retention
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMigrationsPath is where the serve and load commands expect the
// schema migration files, relative to the working directory.
const DefaultMigrationsPath = "file://db/migrations"

// Database owns the SQLite connection for the index store and manages its
// lifecycle: open with the right pragmas, migrate, and close.
//
// Usage:
//
//	db, err := NewDatabase("data/processed/digital_economy.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(); err != nil {
//	    log.Fatal(err)
//	}
type Database struct {
	db             *sql.DB
	path           string
	migrationsPath string
	mu             sync.RWMutex
}

// DatabaseConfig holds configuration for the Database organism.
type DatabaseConfig struct {
	// Path is the database file path
	Path string
	// MigrationsPath is the migrations directory in file:// URL format.
	// Default: DefaultMigrationsPath.
	MigrationsPath string
	// ConnectionConfig allows customizing the SQLite connection
	ConnectionConfig *ConnectionConfig
}

// DefaultDatabaseConfig returns the default configuration for the given path.
func DefaultDatabaseConfig(path string) DatabaseConfig {
	return DatabaseConfig{
		Path:             path,
		MigrationsPath:   DefaultMigrationsPath,
		ConnectionConfig: nil,
	}
}

// NewDatabase opens the index database at path with default configuration,
// creating the file and its parent directories if needed.
func NewDatabase(path string) (*Database, error) {
	return NewDatabaseWithConfig(DefaultDatabaseConfig(path))
}

// NewDatabaseWithConfig opens the index database with custom configuration.
func NewDatabaseWithConfig(config DatabaseConfig) (*Database, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dir := filepath.Dir(config.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	var connConfig ConnectionConfig
	if config.ConnectionConfig != nil {
		connConfig = *config.ConnectionConfig
	} else {
		connConfig = DefaultConnectionConfig(config.Path)
	}

	conn, err := NewSQLiteConnection(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	migrationsPath := config.MigrationsPath
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}

	return &Database{
		db:             conn,
		path:           config.Path,
		migrationsPath: migrationsPath,
	}, nil
}

// Migrate applies all pending schema migrations from the configured
// migrations path. Safe to call repeatedly; already-applied migrations
// are skipped.
//
// golang-migrate takes ownership of the connection it is handed, so this
// delegates to the path-based variant which opens and closes its own.
func (d *Database) Migrate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := MigrateUpFromPath(d.path, d.migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// MigrateWithPath applies migrations from a specific path instead of the
// configured one.
func (d *Database) MigrateWithPath(migrationsPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := MigrateUpFromPath(d.path, migrationsPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// DB returns the underlying sql.DB for use by the repository. Do not close
// it directly; use Database.Close.
func (d *Database) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Close closes the database connection. The Database must not be used
// afterwards. Close is idempotent.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	d.db = nil
	return nil
}

// Ping verifies the connection is alive. Used by the health endpoint and
// the startup validation suite.
func (d *Database) Ping() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return fmt.Errorf("database connection is closed")
	}

	return d.db.Ping()
}

// Stats returns connection pool statistics.
func (d *Database) Stats() sql.DBStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return sql.DBStats{}
	}

	return d.db.Stats()
}

// Exec executes a statement without returning rows.
func (d *Database) Exec(query string, args ...interface{}) (sql.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	return d.db.Exec(query, args...)
}

// Query executes a query that returns rows.
func (d *Database) Query(query string, args ...interface{}) (*sql.Rows, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	return d.db.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (d *Database) QueryRow(query string, args ...interface{}) *sql.Row {
	d.mu.RLock()
	defer d.mu.RUnlock()

	// QueryRow defers errors to Scan
	return d.db.QueryRow(query, args...)
}

// Begin starts a new transaction.
func (d *Database) Begin() (*sql.Tx, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	return d.db.Begin()
}
