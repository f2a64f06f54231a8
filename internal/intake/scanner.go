package intake

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pendingorders/internal/faults"
	"pendingorders/internal/fingerprint"
	"pendingorders/internal/logging"
)

// Finder looks up archived content by fingerprint.
type Finder interface {
	Find(ctx context.Context, fp fingerprint.Fingerprint) (string, bool, error)
}

// Scanner screens the intake directory.
type Scanner struct {
	dir        string
	extensions map[string]struct{}
	index      Finder
	logger     *slog.Logger
}

// NewScanner returns a scanner over dir accepting the given extensions
// (matched case-insensitively, with or without a leading dot).
func NewScanner(dir string, extensions []string, index Finder, logger *slog.Logger) *Scanner {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	if len(exts) == 0 {
		exts[".xlsx"] = struct{}{}
	}
	return &Scanner{
		dir:        dir,
		extensions: exts,
		index:      index,
		logger:     logging.NewComponentLogger(logger, "intake"),
	}
}

// Accepts reports whether name looks like an intake spreadsheet.
func (s *Scanner) Accepts(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Candidates lists intake spreadsheets in directory order. A missing intake
// directory yields no candidates.
func (s *Scanner) Candidates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, faults.Wrap(faults.KindIO, "scan", "read intake directory", err).WithPath(s.dir)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !s.Accepts(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	return paths, nil
}

// Scan fingerprints every candidate and returns the ones still to process,
// sorted by path. Content already in the archive is deleted from the intake
// directory. Files that vanish or cannot be read are skipped with a warning.
func (s *Scanner) Scan(ctx context.Context) (ScanResult, error) {
	var result ScanResult
	candidates, err := s.Candidates()
	if err != nil {
		return result, err
	}
	result.Found = len(candidates)

	logger := logging.WithContext(ctx, s.logger)
	seen := make(map[fingerprint.Fingerprint]struct{}, len(candidates))
	for _, path := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := filepath.Base(path)

		fp, err := fingerprint.File(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				result.Vanished++
				logging.WarnWithContext(logger, "intake file vanished during scan", "intake_vanished",
					logging.String(logging.FieldFile, name),
					logging.String(logging.FieldImpact, "file skipped for this run"),
					logging.String(logging.FieldErrorHint, "none; another process moved the file"),
				)
				continue
			}
			result.Unhashable++
			logger.Error("failed to fingerprint intake file",
				logging.String(logging.FieldFile, name),
				logging.String(logging.FieldEventType, "intake_hash_failed"),
				logging.String(logging.FieldErrorHint, "check the file is readable and not locked"),
				logging.Error(err),
			)
			continue
		}
		logger.Debug("fingerprinted intake file",
			logging.String(logging.FieldFile, name),
			logging.String(logging.FieldFingerprint, string(fp)),
		)

		archived, found, err := s.index.Find(ctx, fp)
		if err != nil {
			return result, err
		}
		if found {
			s.discardDuplicate(logger, path, fp, archived)
			result.Duplicates++
			continue
		}

		if _, repeat := seen[fp]; repeat {
			// Not archived yet: the earlier copy has not succeeded, so this one
			// stays eligible. The runner rechecks the archive before extracting.
			result.Retried++
			logging.WarnWithContext(logger, "content repeated within batch and not yet archived; keeping for retry", "intake_batch_repeat",
				logging.String(logging.FieldFile, name),
				logging.String(logging.FieldFingerprint, string(fp)),
				logging.String(logging.FieldImpact, "processed only if the earlier copy fails"),
				logging.String(logging.FieldErrorHint, "remove redundant exports from the intake directory"),
			)
		}
		seen[fp] = struct{}{}

		if _, err := os.Stat(path); err != nil {
			result.Vanished++
			logging.WarnWithContext(logger, "intake file vanished during scan", "intake_vanished",
				logging.String(logging.FieldFile, name),
				logging.String(logging.FieldImpact, "file skipped for this run"),
				logging.String(logging.FieldErrorHint, "none; another process moved the file"),
			)
			continue
		}
		result.Records = append(result.Records, Record{
			Path:        path,
			Name:        name,
			Fingerprint: fp,
			Outcome:     OutcomeNew,
		})
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Path < result.Records[j].Path
	})
	return result, nil
}

// DiscardDuplicate deletes an intake file whose content is already archived.
// Deletion failure is logged and otherwise ignored.
func (s *Scanner) DiscardDuplicate(ctx context.Context, path string, fp fingerprint.Fingerprint, archived string) {
	s.discardDuplicate(logging.WithContext(ctx, s.logger), path, fp, archived)
}

func (s *Scanner) discardDuplicate(logger *slog.Logger, path string, fp fingerprint.Fingerprint, archived string) {
	name := filepath.Base(path)
	logger.Info(SkippedLine(name, fp, filepath.Base(archived)),
		logging.String(logging.FieldEventType, "intake_duplicate"),
		logging.String(logging.FieldFile, name),
		logging.String(logging.FieldFingerprint, string(fp)),
	)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to delete duplicate intake file", "intake_duplicate_delete_failed",
			logging.String(logging.FieldFile, name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the duplicate stays in the intake directory and is skipped again next run"),
			logging.String(logging.FieldErrorHint, "close the file if it is open and delete it manually"),
		)
		return
	}
	logger.Debug("deleted duplicate intake file", logging.String(logging.FieldFile, name))
}

// SkippedLine formats the structured duplicate line of the run log.
func SkippedLine(name string, fp fingerprint.Fingerprint, archivedName string) string {
	return "SKIPPED | " + name + " | hash=" + string(fp) + " | duplicate content, already archived as " + archivedName
}
