package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"adei_backend/core"
	"adei_backend/logging"
)

// CleanupTempFiles returns a shutdown function that removes files matching
// the glob pattern inside dir. Interrupted atomic dataset saves leave
// "*.tmp*" files next to the JSON they were replacing; this sweeps them.
//
// Priority recommendation: 40+ (final cleanup, after services stopped)
//
// The cleanup function:
//   - Removes files matching pattern in dir
//   - Logs each removal failure and carries on
//   - Returns nil to avoid blocking shutdown (errors are logged)
//
// Usage:
//
//	manager.Register("temp-files", 45, shutdown.CleanupTempFiles(log, cfg.DataDir, "*.tmp*"))
func CleanupTempFiles(log *logging.Logger, dir, pattern string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		return sweepTempFiles(ctx, log, dir, pattern)
	}
}

// sweepTempFiles removes files matching pattern in dir.
// It returns nil even if some files fail to delete (errors are logged).
func sweepTempFiles(ctx context.Context, log *logging.Logger, dir, pattern string) error {
	glob := filepath.Join(dir, pattern)
	matches, err := filepath.Glob(glob)
	if err != nil {
		log.Errorw("Failed to list temporary files",
			"pattern", glob,
			"error", err.Error(),
		)
		// Return nil to not block shutdown
		return nil
	}

	if len(matches) == 0 {
		log.Debugw("No temporary files to clean up", "pattern", glob)
		return nil
	}

	var removed, failed int
	for _, match := range matches {
		// Check context between file deletions
		select {
		case <-ctx.Done():
			log.Warnw("Shutdown context cancelled during cleanup",
				"removed", removed,
				"remaining", len(matches)-removed-failed,
			)
			return nil
		default:
		}

		if err := os.Remove(match); err != nil {
			failed++
			log.Warnw("Failed to remove temporary file",
				"file", filepath.Base(match),
				"error", err.Error(),
			)
		} else {
			removed++
		}
	}

	log.Infow("Temp file cleanup complete",
		"removed", removed,
		"failed", failed,
	)

	return nil
}
