// Command adei is the ADEI Explorer backend: a pipeline that turns the
// annual OIC Digital Economy Index report into a queryable SQLite dataset,
// and a web application for exploring it.
//
// The pipeline runs as subcommands (extract, convert, load) so each stage
// can be re-run independently; serve starts the dashboard and chat UI on
// top of the loaded database.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"adei_backend/core"
	"adei_backend/db"
	"adei_backend/logging"
)

func main() {
	// Load .env file if it exists. A missing file is fine since every
	// setting can come from the real environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// Use fmt here since the logger isn't initialized yet
		fmt.Fprintf(os.Stderr, "Warning: could not read .env file: %v\n", err)
	}

	// Windows service manager entry point. Under the SCM the service
	// lifecycle drives the server directly and the CLI never runs.
	if ran, err := RunAsService(); ran {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(core.ExitCodeError)
		}
		return
	}

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		// cli.Exit errors never reach here; urfave handles them itself
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
}

// newApp builds the CLI application with all subcommands registered.
func newApp() *cli.App {
	return &cli.App{
		Name:    "adei",
		Usage:   "OIC Digital Economy Index pipeline and explorer",
		Version: core.GetVersion(),
		Description: "Extracts country records from the annual index report (PDF via LLM,\n" +
			"XLSX via direct conversion), loads them into SQLite, and serves a\n" +
			"dashboard with an LLM-backed chat agent for querying the data.",
		Commands: []*cli.Command{
			extractCommand(),
			convertCommand(),
			loadCommand(),
			serveCommand(),
			validateCommand(),
			serviceCommand(),
		},
	}
}

// bootstrap loads configuration and builds the logger every command shares.
// Callers own the returned logger and should defer a Sync.
func bootstrap() (*core.Config, *logging.Logger, error) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logging.NewLogger(cfg.Development, cfg.LogFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	return cfg, log, nil
}

// openDatabase opens the SQLite file, creating it if needed, and applies
// any pending schema migrations.
func openDatabase(cfg *core.Config) (*db.Database, error) {
	dbConfig := db.DefaultDatabaseConfig(cfg.DatabasePath)
	dbConfig.MigrationsPath = migrationsURL(cfg.MigrationsDir)

	database, err := db.NewDatabaseWithConfig(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database %s: %w", cfg.DatabasePath, err)
	}

	return database, nil
}

// migrationsURL renders a migrations directory in the file:// source URL
// form golang-migrate expects. Configuration holds a plain path.
func migrationsURL(dir string) string {
	if dir == "" {
		return db.DefaultMigrationsPath
	}
	if strings.Contains(dir, "://") {
		return dir
	}
	return "file://" + dir
}

// syncLogger flushes buffered log entries. Console sinks return EINVAL on
// sync under Linux, so the error is discarded.
func syncLogger(log *logging.Logger) {
	_ = log.Sync()
}
