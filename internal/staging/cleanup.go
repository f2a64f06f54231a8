// Package staging manages the temp area holding full, unfiltered per-file
// extractions. Its contents survive a run for inspection and are cleared at
// the start of the next one.
package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pendingorders/internal/logging"
)

// CleanResult contains the outcome of a temp cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanTemp removes every *.csv file from tempDir, creating the directory when
// it does not exist. Failures are logged and collected, never fatal.
func CleanTemp(tempDir string, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	tempDir = strings.TrimSpace(tempDir)
	if tempDir == "" {
		return result
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: tempDir, Error: err})
		return result
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: tempDir, Error: err})
		return result
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove temp extraction",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "temp_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "close the file if it is open and check temp_dir permissions"),
					logging.String(logging.FieldImpact, "stale extraction stays in the temp area"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	if logger != nil && len(result.Removed) > 0 {
		logger.Info("cleared temp extractions",
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "temp_cleanup"),
		)
	}
	return result
}
