package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"pendingorders/internal/faults"
	"pendingorders/internal/fingerprint"
	"pendingorders/internal/ledger"
	"pendingorders/internal/logging"
)

// Ledger is the subset of the SQLite ledger the index uses.
type Ledger interface {
	LookupArchive(ctx context.Context, fingerprint string) (*ledger.ArchiveEntry, error)
	RecordArchive(ctx context.Context, e ledger.ArchiveEntry) error
	ForgetArchive(ctx context.Context, fingerprint string) error
	ReplaceArchive(ctx context.Context, entries []ledger.ArchiveEntry) error
}

// Index answers whether content has already been archived.
type Index struct {
	dir    string
	ledger Ledger
	logger *slog.Logger
}

// NewIndex returns an index over dir. store may be nil, in which case every
// lookup scans the directory.
func NewIndex(dir string, store Ledger, logger *slog.Logger) *Index {
	return &Index{
		dir:    dir,
		ledger: store,
		logger: logging.NewComponentLogger(logger, "archive-index"),
	}
}

// Dir returns the archive directory.
func (i *Index) Dir() string { return i.dir }

// Find returns the archived path holding content with fingerprint fp. A
// missing archive directory is an empty archive.
func (i *Index) Find(ctx context.Context, fp fingerprint.Fingerprint) (string, bool, error) {
	if fp == "" {
		return "", false, nil
	}
	if path, ok := i.findInLedger(ctx, fp); ok {
		return path, true, nil
	}

	entries, err := i.Entries()
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.Fingerprint != fp {
			continue
		}
		i.remember(ctx, e, "")
		return e.Path, true, nil
	}
	return "", false, nil
}

// findInLedger trusts a ledger hit only while the archived file still exists.
func (i *Index) findInLedger(ctx context.Context, fp fingerprint.Fingerprint) (string, bool) {
	if i.ledger == nil {
		return "", false
	}
	entry, err := i.ledger.LookupArchive(ctx, string(fp))
	if err != nil {
		logging.WarnWithContext(i.logger, "ledger lookup failed; scanning archive directory", "ledger_lookup_failed",
			logging.String(logging.FieldFingerprint, string(fp)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "lookup falls back to the archive directory"),
		)
		return "", false
	}
	if entry == nil {
		return "", false
	}
	if info, statErr := os.Stat(entry.ArchivePath); statErr == nil && info.Mode().IsRegular() {
		return entry.ArchivePath, true
	}
	if err := i.ledger.ForgetArchive(ctx, string(fp)); err != nil {
		i.logger.Debug("forget stale ledger entry failed", logging.Error(err))
	}
	return "", false
}

// Record stores a freshly archived entry in the ledger. Failures are logged.
func (i *Index) Record(ctx context.Context, e Entry, originalName string) {
	i.remember(ctx, e, originalName)
}

func (i *Index) remember(ctx context.Context, e Entry, originalName string) {
	if i.ledger == nil {
		return
	}
	runID, _ := logging.RunIDFromContext(ctx)
	err := i.ledger.RecordArchive(ctx, ledger.ArchiveEntry{
		Fingerprint:  string(e.Fingerprint),
		ArchivePath:  e.Path,
		OriginalName: originalName,
		RunID:        runID,
	})
	if err != nil {
		logging.WarnWithContext(i.logger, "ledger write failed", "ledger_write_failed",
			logging.String(logging.FieldFingerprint, string(e.Fingerprint)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the archive directory remains authoritative"),
			logging.String(logging.FieldErrorHint, "run 'pendingorders archive reindex'"),
		)
	}
}

// Entries lists every archive file, sorted by name.
func (i *Index) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(i.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, faults.Wrap(faults.KindIO, "archive index", "read archive directory", err).WithPath(i.dir)
	}
	var entries []Entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		entry, ok := ParseName(de.Name())
		if !ok {
			continue
		}
		entry.Path = filepath.Join(i.dir, de.Name())
		if info, err := de.Info(); err == nil {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(a, b int) bool {
		return filepath.Base(entries[a].Path) < filepath.Base(entries[b].Path)
	})
	return entries, nil
}

// Rebuild replaces the ledger's archive entries with what is on disk and
// returns the number of entries written. When several files share a
// fingerprint the first by name wins.
func (i *Index) Rebuild(ctx context.Context) (int, error) {
	if i.ledger == nil {
		return 0, errors.New("archive index has no ledger attached")
	}
	entries, err := i.Entries()
	if err != nil {
		return 0, err
	}
	seen := make(map[fingerprint.Fingerprint]struct{}, len(entries))
	records := make([]ledger.ArchiveEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Fingerprint]; dup {
			continue
		}
		seen[e.Fingerprint] = struct{}{}
		record := ledger.ArchiveEntry{
			Fingerprint:  string(e.Fingerprint),
			ArchivePath:  e.Path,
			OriginalName: e.Stem + e.Ext,
		}
		if info, statErr := os.Stat(e.Path); statErr == nil {
			record.ArchivedAt = info.ModTime()
		}
		records = append(records, record)
	}
	if err := i.ledger.ReplaceArchive(ctx, records); err != nil {
		return 0, fmt.Errorf("rebuild ledger: %w", err)
	}
	i.logger.Info("archive ledger rebuilt", logging.Int("entries", len(records)))
	return len(records), nil
}
