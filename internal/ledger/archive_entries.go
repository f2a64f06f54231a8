package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ArchiveEntry records one archived input.
type ArchiveEntry struct {
	Fingerprint  string
	ArchivePath  string
	OriginalName string
	ArchivedAt   time.Time
	RunID        string
}

const archiveColumns = `fingerprint, archive_path, original_name, archived_at, run_id`

func scanArchiveEntry(scanner interface{ Scan(...any) error }) (ArchiveEntry, error) {
	var (
		entry      ArchiveEntry
		archivedAt string
	)
	if err := scanner.Scan(&entry.Fingerprint, &entry.ArchivePath, &entry.OriginalName, &archivedAt, &entry.RunID); err != nil {
		return ArchiveEntry{}, err
	}
	entry.ArchivedAt = parseTime(archivedAt)
	return entry, nil
}

// RecordArchive inserts or replaces the entry for e.Fingerprint.
func (s *Store) RecordArchive(ctx context.Context, e ArchiveEntry) error {
	if e.Fingerprint == "" {
		return errors.New("archive entry requires a fingerprint")
	}
	if e.ArchivedAt.IsZero() {
		e.ArchivedAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO archive_entries (`+archiveColumns+`) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(fingerprint) DO UPDATE SET
            archive_path = excluded.archive_path,
            original_name = excluded.original_name,
            archived_at = excluded.archived_at,
            run_id = excluded.run_id`,
		e.Fingerprint, e.ArchivePath, e.OriginalName, formatTime(e.ArchivedAt), e.RunID,
	)
	if err != nil {
		return fmt.Errorf("record archive entry: %w", err)
	}
	return nil
}

// LookupArchive returns the entry for fingerprint, or nil when none exists.
func (s *Store) LookupArchive(ctx context.Context, fingerprint string) (*ArchiveEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archive_entries WHERE fingerprint = ?`, fingerprint)
	entry, err := scanArchiveEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup archive entry: %w", err)
	}
	return &entry, nil
}

// ForgetArchive removes the entry for fingerprint, if any.
func (s *Store) ForgetArchive(ctx context.Context, fingerprint string) error {
	if err := s.exec(ctx, `DELETE FROM archive_entries WHERE fingerprint = ?`, fingerprint); err != nil {
		return fmt.Errorf("forget archive entry: %w", err)
	}
	return nil
}

// ListArchive returns all entries ordered by archive time, newest first.
func (s *Store) ListArchive(ctx context.Context) ([]ArchiveEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+archiveColumns+` FROM archive_entries ORDER BY archived_at DESC, fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("list archive entries: %w", err)
	}
	defer rows.Close()

	var entries []ArchiveEntry
	for rows.Next() {
		entry, err := scanArchiveEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ReplaceArchive swaps the full set of archive entries in one transaction.
func (s *Store) ReplaceArchive(ctx context.Context, entries []ArchiveEntry) error {
	return withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reindex tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM archive_entries`); err != nil {
			return fmt.Errorf("clear archive entries: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO archive_entries (`+archiveColumns+`) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare archive insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range entries {
			archivedAt := e.ArchivedAt
			if archivedAt.IsZero() {
				archivedAt = time.Now()
			}
			if _, err := stmt.ExecContext(ctx, e.Fingerprint, e.ArchivePath, e.OriginalName, formatTime(archivedAt), e.RunID); err != nil {
				return fmt.Errorf("insert archive entry %s: %w", e.Fingerprint, err)
			}
		}
		return tx.Commit()
	})
}
