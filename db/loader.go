package db

import (
	"context"
	"fmt"
	"time"

	"adei_backend/adei"
)

// LoadStats summarizes one dataset load.
type LoadStats struct {
	Countries     int           // Countries inserted (existing names are kept, not overwritten)
	DimensionRows int           // Dimension summary rows inserted
	PillarRows    int           // Pillar rows inserted
	SubPillarRows int           // Sub-pillar indicator rows inserted
	Skipped       int           // Records skipped for having no country name
	Duration      time.Duration // Wall time of the load transaction
}

// LoadDataset inserts the extracted dataset into the relational schema in a
// single transaction. Countries are inserted with INSERT OR IGNORE keyed on
// the unique name, so loading on top of existing data does not overwrite
// countries but would duplicate their child rows. Callers that want a clean
// slate run ResetDataset first.
//
// Records without a country name are skipped and counted in Skipped.
func (r *Repository) LoadDataset(ctx context.Context, records []adei.CountryData) (*LoadStats, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	start := time.Now()
	stats := &LoadStats{}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if record.CountryName == "" {
			stats.Skipped++
			continue
		}

		result, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO countries (name, adei_score, adei_rank) VALUES (?, ?, ?)",
			record.CountryName, record.OverallADEIScore, record.OverallADEIRank)
		if err != nil {
			return nil, fmt.Errorf("failed to insert country %s: %w", record.CountryName, err)
		}
		if inserted, err := result.RowsAffected(); err == nil && inserted > 0 {
			stats.Countries++
		}

		// OR IGNORE may have kept an existing row, so re-read the id
		var countryID int64
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM countries WHERE name = ?",
			record.CountryName).Scan(&countryID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve id for country %s: %w", record.CountryName, err)
		}

		for _, summary := range record.DimensionSummary {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO dimension_summaries (country_id, dimension, pillar, value, rank)
				VALUES (?, ?, ?, ?, ?)`,
				countryID, summary.Dimension, summary.Pillar, summary.Value, summary.Rank)
			if err != nil {
				return nil, fmt.Errorf("failed to insert dimension summary for %s: %w", record.CountryName, err)
			}
			stats.DimensionRows++
		}

		for _, pillar := range record.DetailedPillars {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO pillars (country_id, pillar_name, total_pillar_score)
				VALUES (?, ?, ?)`,
				countryID, pillar.PillarName, pillar.TotalPillarScore)
			if err != nil {
				return nil, fmt.Errorf("failed to insert pillar %s for %s: %w", pillar.PillarName, record.CountryName, err)
			}
			pillarID, err := result.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("failed to get pillar id for %s: %w", record.CountryName, err)
			}
			stats.PillarRows++

			for _, sub := range pillar.SubPillars {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO sub_pillars (pillar_id, name, score)
					VALUES (?, ?, ?)`,
					pillarID, sub.Name, sub.Score)
				if err != nil {
					return nil, fmt.Errorf("failed to insert sub-pillar %s for %s: %w", sub.Name, record.CountryName, err)
				}
				stats.SubPillarRows++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit load transaction: %w", err)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// ResetDataset deletes every dataset row, children before parents. The
// chat log is untouched. Used by the load command's --reset flag.
func (r *Repository) ResetDataset(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sub_pillars", "pillars", "dimension_summaries", "countries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}

	return nil
}
