package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunState is the recorded lifecycle state of a run.
type RunState string

const (
	RunRunning     RunState = "running"
	RunCompleted   RunState = "completed"
	RunFailed      RunState = "failed"
	RunInterrupted RunState = "interrupted"
)

// Run is one recorded invocation.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	State      RunState
	FilesFound int
	Processed  int
	Failed     int
	Duplicates int
	ReportPath string
	Error      string
}

// FileEvent records the outcome of one intake file within a run.
type FileEvent struct {
	RunID       string
	FileName    string
	Fingerprint string
	Outcome     string
	Detail      string
	CreatedAt   time.Time
}

// BeginRun records a run start. Runs still marked running belong to a process
// that crashed; they are marked interrupted first.
func (s *Store) BeginRun(ctx context.Context, runID string, started time.Time) error {
	if err := s.exec(ctx,
		`UPDATE runs SET state = ?, error = CASE WHEN error = '' THEN 'process exited before the run finished' ELSE error END
         WHERE state = ?`,
		RunInterrupted, RunRunning,
	); err != nil {
		return fmt.Errorf("mark interrupted runs: %w", err)
	}
	if err := s.exec(ctx,
		`INSERT INTO runs (run_id, started_at, state) VALUES (?, ?, ?)`,
		runID, formatTime(started), RunRunning,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and state of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, state = ?, files_found = ?, processed = ?, failed = ?,
            duplicates = ?, report_path = ?, error = ?
         WHERE run_id = ?`,
		nullableTime(run.FinishedAt), run.State, run.FilesFound, run.Processed, run.Failed,
		run.Duplicates, run.ReportPath, run.Error, run.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, started_at, finished_at, state, files_found, processed, failed,
                duplicates, report_path, error
              FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&run.RunID, &startedAt, &finishedAt, &run.State, &run.FilesFound,
			&run.Processed, &run.Failed, &run.Duplicates, &run.ReportPath, &run.Error); err != nil {
			return nil, err
		}
		run.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			run.FinishedAt = parseTime(finishedAt.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordFileEvent appends a file outcome to the run's history.
func (s *Store) RecordFileEvent(ctx context.Context, ev FileEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO file_events (run_id, file_name, fingerprint, outcome, detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.FileName, ev.Fingerprint, ev.Outcome, ev.Detail, formatTime(ev.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record file event: %w", err)
	}
	return nil
}

// FileEvents returns the events of one run in insertion order.
func (s *Store) FileEvents(ctx context.Context, runID string) ([]FileEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, file_name, fingerprint, outcome, detail, created_at
         FROM file_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list file events: %w", err)
	}
	defer rows.Close()

	var events []FileEvent
	for rows.Next() {
		var (
			ev        FileEvent
			createdAt string
		)
		if err := rows.Scan(&ev.RunID, &ev.FileName, &ev.Fingerprint, &ev.Outcome, &ev.Detail, &createdAt); err != nil {
			return nil, err
		}
		ev.CreatedAt = parseTime(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}
