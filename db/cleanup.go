package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult contains statistics about a cleanup operation.
type CleanupResult struct {
	// ChatTurnsDeleted is the number of records deleted from chat_history
	ChatTurnsDeleted int64
	// TotalDeleted is the sum of all deleted records
	TotalDeleted int64
	// Duration is how long the cleanup took
	Duration time.Duration
}

// tablesToClean defines the tables that have retention policies.
// All tables must have a created_at column with DATETIME type.
// The dataset tables are not listed: index scores are reference data,
// not a rolling log.
var tablesToClean = []string{
	"chat_history",
}

// Cleanup deletes chat log records older than retentionDays and runs
// VACUUM to reclaim disk space.
//
// This method is thread-safe and uses a transaction to ensure atomicity.
// If any deletion fails, the entire operation is rolled back.
//
// Example:
//
//	result, err := db.Cleanup(30) // Delete records older than 30 days
//	if err != nil {
//	    log.Printf("Cleanup failed: %v", err)
//	}
//	log.Printf("Cleaned up %d total records", result.TotalDeleted)
func (d *Database) Cleanup(retentionDays int) (CleanupResult, error) {
	return d.CleanupWithContext(context.Background(), retentionDays)
}

// CleanupWithContext deletes chat log records older than retentionDays,
// respecting context cancellation. It returns early if the context is
// cancelled, rolling back any pending changes.
func (d *Database) CleanupWithContext(ctx context.Context, retentionDays int) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{}

	if retentionDays < 0 {
		return result, fmt.Errorf("retentionDays must be non-negative, got %d", retentionDays)
	}

	// Check context before starting
	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return result, fmt.Errorf("database connection is closed")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback() // No-op if already committed
		}
	}()

	// SQLite datetime comparison: datetime('now', '-N days')
	deletedCounts := make(map[string]int64)

	for _, table := range tablesToClean {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		query := fmt.Sprintf(
			"DELETE FROM %s WHERE created_at < datetime('now', '-%d days')",
			table, retentionDays,
		)

		res, err := tx.ExecContext(ctx, query)
		if err != nil {
			return result, fmt.Errorf("failed to delete from %s: %w", table, err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
		}

		deletedCounts[table] = rowsAffected
		result.TotalDeleted += rowsAffected
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil // Prevent rollback in defer

	result.ChatTurnsDeleted = deletedCounts["chat_history"]

	// Check context before VACUUM
	select {
	case <-ctx.Done():
		// Transaction committed, but VACUUM not run - acceptable partial success
		result.Duration = time.Since(start)
		return result, ctx.Err()
	default:
	}

	// VACUUM must run outside the transaction
	if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
		// Data was already deleted, so report the partial success
		result.Duration = time.Since(start)
		return result, fmt.Errorf("cleanup succeeded but VACUUM failed: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// CleanupSchedulerConfig holds configuration for the cleanup scheduler.
type CleanupSchedulerConfig struct {
	// RetentionDays is the number of days to retain records
	RetentionDays int
	// Interval is how often to run cleanup
	Interval time.Duration
	// OnCleanup is called after each cleanup run (optional)
	// Useful for logging or metrics
	OnCleanup func(result CleanupResult, err error)
}

// DefaultCleanupSchedulerConfig returns sensible defaults for the cleanup scheduler.
func DefaultCleanupSchedulerConfig() CleanupSchedulerConfig {
	return CleanupSchedulerConfig{
		RetentionDays: 30,
		Interval:      24 * time.Hour,
		OnCleanup:     nil,
	}
}

// StartCleanupScheduler starts a background goroutine that periodically
// prunes the chat log. It runs an initial cleanup immediately, then
// subsequent cleanups at each interval, and stops when the context is
// cancelled.
func (d *Database) StartCleanupScheduler(ctx context.Context, retentionDays int, interval time.Duration) {
	config := CleanupSchedulerConfig{
		RetentionDays: retentionDays,
		Interval:      interval,
		OnCleanup:     nil,
	}
	d.StartCleanupSchedulerWithConfig(ctx, config)
}

// StartCleanupSchedulerWithConfig starts a cleanup scheduler with custom
// configuration. The OnCleanup callback receives each run's result and is
// the place to hang logging or metrics.
func (d *Database) StartCleanupSchedulerWithConfig(ctx context.Context, config CleanupSchedulerConfig) {
	go func() {
		// Run initial cleanup immediately
		result, err := d.CleanupWithContext(ctx, config.RetentionDays)
		if config.OnCleanup != nil {
			config.OnCleanup(result, err)
		}

		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := d.CleanupWithContext(ctx, config.RetentionDays)
				if config.OnCleanup != nil {
					config.OnCleanup(result, err)
				}
			}
		}
	}()
}
