package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RunLogPattern matches run log file names for retention.
const RunLogPattern = "processing_*.log"

// RunLogOptions configures OpenRunLog.
type RunLogOptions struct {
	Dir          string
	Started      time.Time
	RunID        string
	Format       string
	Level        string
	ConsoleLevel string
	// Console receives warn+ records; defaults to stderr.
	Console io.Writer
	// Progress receives operator progress lines; defaults to stdout.
	Progress io.Writer
}

// RunLog is the per-invocation log handle. It owns the run log file and must
// be closed when the run ends.
type RunLog struct {
	Path   string
	Logger *slog.Logger

	mu       sync.Mutex
	file     *os.File
	progress io.Writer
}

// OpenRunLog creates logs/processing_<timestamp>.log and returns a handle whose
// Logger writes the full record stream to the file and the console-level
// subset to the terminal.
func OpenRunLog(opts RunLogOptions) (*RunLog, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, errors.New("run log directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	started := opts.Started
	if started.IsZero() {
		started = time.Now()
	}

	file, path, err := createRunLogFile(dir, started)
	if err != nil {
		return nil, err
	}

	fileLogger, err := New(Options{Level: opts.Level, Format: opts.Format, Writer: file})
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleLevel := opts.ConsoleLevel
	if strings.TrimSpace(consoleLevel) == "" {
		consoleLevel = "warn"
	}
	consoleLogger, err := New(Options{Level: consoleLevel, Format: "console", Writer: console})
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	logger := TeeLogger(fileLogger, consoleLogger.Handler())
	if opts.RunID != "" {
		logger = logger.With(String(FieldRunID, opts.RunID))
	}

	progress := opts.Progress
	if progress == nil {
		progress = os.Stdout
	}
	return &RunLog{Path: path, Logger: logger, file: file, progress: progress}, nil
}

func createRunLogFile(dir string, started time.Time) (*os.File, string, error) {
	stamp := started.Format("20060102_150405")
	for n := 0; n < 100; n++ {
		name := fmt.Sprintf("processing_%s.log", stamp)
		if n > 0 {
			name = fmt.Sprintf("processing_%s_%d.log", stamp, n)
		}
		path := filepath.Join(dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o664)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("open run log: %w", err)
		}
	}
	return nil, "", fmt.Errorf("open run log: too many logs for %s", stamp)
}

// Progress prints a concise operator line and mirrors it into the run log.
func (r *RunLog) Progress(format string, args ...any) {
	if r == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	r.mu.Lock()
	if r.progress != nil {
		fmt.Fprintln(r.progress, line)
	}
	r.mu.Unlock()
	if r.Logger != nil {
		r.Logger.Debug(line, String(FieldEventType, "progress"))
	}
}

// Close flushes and closes the run log file. Further logging is discarded.
func (r *RunLog) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	syncErr := r.file.Sync()
	closeErr := r.file.Close()
	r.file = nil
	r.Logger = NewNop()
	if closeErr != nil {
		return closeErr
	}
	return syncErr
}
