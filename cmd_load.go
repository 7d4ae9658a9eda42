package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"adei_backend/adei"
	"adei_backend/db"
)

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Load the JSON dataset into the SQLite database",
		UsageText: "adei load [--json FILE] [--db FILE] [--reset]",
		Description: "Applies schema migrations, then inserts the dataset in a single\n" +
			"transaction. Loading on top of existing data keeps known countries\n" +
			"but duplicates their score rows; pass --reset to clear the dataset\n" +
			"tables first.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "json",
				Usage: "dataset `FILE` to load (default from configuration)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database `FILE` (default from configuration)",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "clear existing dataset rows before loading",
			},
		},
		Action: loadAction,
	}
}

func loadAction(c *cli.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer syncLogger(log)

	if path := c.String("json"); path != "" {
		cfg.JSONPath = path
	}
	if path := c.String("db"); path != "" {
		cfg.DatabasePath = path
	}

	records, err := adei.ReadDataset(cfg.JSONPath)
	if err != nil {
		return fmt.Errorf("reading dataset %s: %w", cfg.JSONPath, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("dataset %s contains no country records", cfg.JSONPath)
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	repo := db.NewRepository(database, nil)

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if c.Bool("reset") {
		if err := repo.ResetDataset(ctx); err != nil {
			return fmt.Errorf("resetting dataset: %w", err)
		}
		log.Infow("Existing dataset rows cleared", "database", cfg.DatabasePath)
	}

	stats, err := repo.LoadDataset(ctx, records)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	log.Infow("Load complete",
		"countries", stats.Countries,
		"dimension_rows", stats.DimensionRows,
		"pillar_rows", stats.PillarRows,
		"sub_pillar_rows", stats.SubPillarRows,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
		"database", cfg.DatabasePath,
	)

	fmt.Printf("Loaded %d countries (%d pillar rows, %d indicator rows) in %s -> %s\n",
		stats.Countries, stats.PillarRows, stats.SubPillarRows,
		stats.Duration.Round(time.Millisecond), cfg.DatabasePath)
	if stats.Skipped > 0 {
		fmt.Printf("Skipped %d records with no country name\n", stats.Skipped)
	}

	return nil
}
