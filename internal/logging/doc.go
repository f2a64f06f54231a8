// Package logging assembles structured slog loggers and formatting helpers used
// across pendingorders.
//
// It owns the configurable console/JSON handlers, the per-run log file handle,
// log retention, and context-aware helpers so pipeline code can tag log lines
// with the run ID, the file being processed, and the current stage. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// There is no package-level logger: a RunLog is opened once per run, handed
// down explicitly, and closed when the run ends.
package logging
