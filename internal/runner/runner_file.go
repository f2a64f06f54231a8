package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"pendingorders/internal/extract"
	"pendingorders/internal/faults"
	"pendingorders/internal/fingerprint"
	"pendingorders/internal/intake"
	"pendingorders/internal/logging"
)

// processFile runs Recheck, Extract, and Archive for one record. It returns the
// per-file output path when the record should take part in the merge.
func (st *run) processFile(ctx context.Context, rec intake.Record) (string, bool) {
	ctx = logging.WithFile(ctx, rec.Name)

	rctx := st.enter(ctx, StateRecheck)
	logger := logging.WithContext(rctx, st.logger)
	if _, err := os.Stat(rec.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "file vanished before processing", "intake_vanished",
				logging.String(logging.FieldImpact, "file skipped"),
				logging.String(logging.FieldErrorHint, "no action needed if the file was moved on purpose"),
			)
			st.summary.Vanished++
			st.log.Progress("  skipped: file no longer present")
			return "", false
		}
		st.fail(rctx, rec, "", faults.Wrap(faults.KindIO, "recheck", "cannot stat intake file", err).WithPath(rec.Path))
		return "", false
	}
	fp, err := fingerprint.File(rec.Path)
	if err != nil {
		st.fail(rctx, rec, "", faults.Wrap(faults.KindIO, "recheck", "cannot fingerprint intake file", err).WithPath(rec.Path))
		return "", false
	}
	if fp != rec.Fingerprint {
		logger.Info("content changed since scan",
			logging.String("scanned", rec.Fingerprint.String()),
			logging.String(logging.FieldFingerprint, fp.String()),
		)
		rec.Fingerprint = fp
	}
	archived, found, err := st.index.Find(rctx, fp)
	if err != nil {
		st.fail(rctx, rec, "", err)
		return "", false
	}
	if found {
		st.scanner.DiscardDuplicate(rctx, rec.Path, fp, archived)
		rec.Outcome = intake.OutcomeDuplicate
		rec.Detail = filepath.Base(archived)
		st.summary.Duplicates++
		st.recordEvent(ctx, rec)
		st.log.Progress("  skipped: already archived as %s", filepath.Base(archived))
		return "", false
	}

	ectx := st.enter(ctx, StateExtract)
	out, err := st.pipeline.Run(ectx, rec)
	if err != nil {
		st.fail(ectx, rec, "", err)
		return "", false
	}

	actx := st.enter(ctx, StateArchive)
	if _, err := os.Stat(rec.Path); errors.Is(err, os.ErrNotExist) {
		// Output stays: the extraction already succeeded on this content.
		logging.WarnWithContext(logging.WithContext(actx, st.logger), "file vanished before archiving", "archive_source_vanished",
			logging.String(logging.FieldImpact, "content processed but not archived"),
			logging.String(logging.FieldErrorHint, "the same content will be processed again if it reappears"),
		)
	} else {
		dest, err := st.archiver.Archive(actx, rec.Path, fp)
		if err != nil {
			st.fail(actx, rec, out.Path, err)
			return "", false
		}
		rec.Outcome = intake.OutcomeArchived
		rec.Detail = filepath.Base(dest)
	}

	st.logger.Info(ProcessedLine(rec.Name, fp.String(), filepath.Base(out.Path)),
		logging.String(logging.FieldEventType, "file_processed"),
		logging.String(logging.FieldFile, rec.Name),
		logging.String(logging.FieldFingerprint, fp.String()),
		logging.Int("pending", out.Pending),
		logging.Int("rows", out.Rows),
	)
	st.summary.Processed++
	st.recordEvent(ctx, rec)
	st.log.Progress("  done: %d pending order(s)", out.Pending)
	return out.Path, true
}

// fail logs a per-file failure, removes any partial output, and records the
// outcome. The intake file is left in place.
func (st *run) fail(ctx context.Context, rec intake.Record, output string, cause error) {
	fp := rec.Fingerprint
	if fp == "" {
		if computed, err := fingerprint.File(rec.Path); err == nil {
			fp = computed
		}
	}
	if output == "" && fp != "" {
		output = extract.OutputPath(st.cfg.Paths.ProcessedDir, stemOf(rec.Name), fp)
	}
	if output != "" {
		if err := extract.Remove(output); err != nil {
			logging.WarnWithContext(st.logger, "failed to remove per-file output", "output_cleanup_failed",
				logging.String("path", output),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale output may remain in the processed directory"),
				logging.String(logging.FieldErrorHint, "delete the file manually"),
			)
		}
	}

	kind := string(faults.KindOf(cause))
	if kind == "" {
		kind = "unknown"
	}
	logging.ErrorWithContext(logging.WithContext(ctx, st.logger), ErrorLine(rec.Name, fp.OrUnknown(), cause.Error()), "file_failed",
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldErrorHint, hintFor(cause)),
		logging.Error(cause),
	)
	rec.Fingerprint = fp
	rec.Outcome = intake.OutcomeFailed
	rec.Detail = cause.Error()
	st.summary.Failed++
	st.recordEvent(ctx, rec)
	st.log.Progress("  failed: %v", cause)
}

func stemOf(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func hintFor(err error) string {
	switch faults.KindOf(err) {
	case faults.KindLock:
		return "close the file in Excel and run again"
	case faults.KindSchema:
		return "check that the export contains an order status column"
	case faults.KindInput:
		return "re-export the file from the platform"
	case faults.KindVerify:
		return "check free disk space in the archive directory"
	default:
		return "the file stays in the intake directory and is retried next run"
	}
}
