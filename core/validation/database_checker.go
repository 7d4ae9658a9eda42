package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adei_backend/core"
	"adei_backend/db"
)

// DatabaseChecker provides methods to verify the SQLite database is present,
// migrated, and populated. This is a molecule that composes the db package's
// connection and repository organisms into startup checks.
type DatabaseChecker struct {
	dbPath        string
	migrationsDir string
	timeout       time.Duration
}

// NewDatabaseChecker creates a new DatabaseChecker with default settings.
// Default timeout is 5 seconds per check; everything here is local disk I/O.
func NewDatabaseChecker(dbPath, migrationsDir string) *DatabaseChecker {
	return &DatabaseChecker{
		dbPath:        dbPath,
		migrationsDir: migrationsDir,
		timeout:       5 * time.Second,
	}
}

// WithTimeout sets the timeout for database checks.
func (c *DatabaseChecker) WithTimeout(timeout time.Duration) *DatabaseChecker {
	c.timeout = timeout
	return c
}

// CheckDatabaseFile verifies the database file exists and can be queried.
// Existence is checked first so the probe never creates an empty database.
func (c *DatabaseChecker) CheckDatabaseFile() ValidationResult {
	if err := CheckFileExists(c.dbPath); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Database not found; run 'adei load' to build it",
			Error:   core.ErrDatabaseUnavailable(c.dbPath, "file does not exist"),
		}
	}

	conn, err := db.NewSQLiteConnectionWithDefaults(c.dbPath)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Cannot open database",
			Error:   core.ErrDatabaseUnavailable(c.dbPath, err.Error()),
		}
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	// A ping succeeds even on a corrupt file; reading the catalog does not.
	var objects int64
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&objects); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Database file is not readable",
			Error:   core.ErrDatabaseUnavailable(c.dbPath, err.Error()),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: "Database openable: " + c.dbPath,
	}
}

// CheckSchemaVersion verifies the schema migrations have been applied and the
// schema is not dirty from a failed migration.
func (c *DatabaseChecker) CheckSchemaVersion() ValidationResult {
	version, dirty, err := db.GetMigrationVersionFromPath(c.dbPath, c.migrationsURL())
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Cannot read schema version",
			Error:   core.ErrDatabaseUnavailable(c.dbPath, err.Error()),
		}
	}

	if dirty {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("Schema dirty at version %d; manual repair required", version),
			Error:   core.ErrDatabaseUnavailable(c.dbPath, fmt.Sprintf("dirty schema at version %d", version)),
		}
	}

	if version == 0 {
		return ValidationResult{
			Valid:   false,
			Message: "Schema not migrated; run 'adei load' to apply migrations",
			Error:   core.ErrDatabaseUnavailable(c.dbPath, "no migrations applied"),
		}
	}

	return ValidationResult{
		Valid:   true,
		Message: fmt.Sprintf("Schema at version %d", version),
	}
}

// CheckDatasetCounts verifies the index data has been loaded. An empty
// database is a warning (the server boots, the dashboard is just empty), as
// are countries that were loaded without pillar or dimension children.
func (c *DatabaseChecker) CheckDatasetCounts() ValidationResult {
	database, err := db.NewDatabaseWithConfig(db.DatabaseConfig{
		Path:           c.dbPath,
		MigrationsPath: c.migrationsURL(),
	})
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Cannot open database",
			Error:   core.ErrDatabaseUnavailable(c.dbPath, err.Error()),
		}
	}
	defer database.Close()

	repo := db.NewRepository(database, nil)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	countries, err := repo.CountCountries(ctx)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Cannot count dataset rows; run 'adei load' to build the schema",
			Error:   err,
		}
	}

	if countries == 0 {
		return ValidationResult{
			Valid:   false,
			Warning: true,
			Message: "Database is empty; run 'adei load' to import the dataset",
		}
	}

	dimensions, err := repo.CountDimensionSummaries(ctx)
	if err != nil {
		return ValidationResult{Valid: false, Message: "Cannot count dimension rows", Error: err}
	}
	pillars, err := repo.CountPillars(ctx)
	if err != nil {
		return ValidationResult{Valid: false, Message: "Cannot count pillar rows", Error: err}
	}
	subPillars, err := repo.CountSubPillars(ctx)
	if err != nil {
		return ValidationResult{Valid: false, Message: "Cannot count sub-pillar rows", Error: err}
	}

	if childless := c.countriesWithoutChildren(ctx, repo); len(childless) > 0 {
		return ValidationResult{
			Valid:   false,
			Warning: true,
			Message: fmt.Sprintf("%d countries loaded but %d have no pillar or dimension rows: %s",
				countries, len(childless), summarizeNames(childless, 3)),
		}
	}

	return ValidationResult{
		Valid: true,
		Message: fmt.Sprintf("%d countries, %d dimension rows, %d pillars, %d sub-pillars",
			countries, dimensions, pillars, subPillars),
	}
}

// countriesWithoutChildren returns names of countries that have no pillar or
// no dimension summary rows. Records with empty children load fine but make
// a useless dashboard, so validate flags them.
func (c *DatabaseChecker) countriesWithoutChildren(ctx context.Context, repo *db.Repository) []string {
	result, err := repo.RunSelect(ctx, `SELECT name FROM countries c
		WHERE NOT EXISTS (SELECT 1 FROM pillars p WHERE p.country_id = c.id)
		   OR NOT EXISTS (SELECT 1 FROM dimension_summaries d WHERE d.country_id = c.id)
		ORDER BY name`, 60)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) > 0 {
			names = append(names, row[0])
		}
	}
	return names
}

// migrationsURL renders the migrations directory in the file:// form
// golang-migrate expects.
func (c *DatabaseChecker) migrationsURL() string {
	if c.migrationsDir == "" {
		return db.DefaultMigrationsPath
	}
	if strings.HasPrefix(c.migrationsDir, "file://") {
		return c.migrationsDir
	}
	return "file://" + c.migrationsDir
}

// summarizeNames joins up to max names, appending a count for the rest.
func summarizeNames(names []string, max int) string {
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:max], ", "), len(names)-max)
}
