package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pendingorders/internal/faults"
	"pendingorders/internal/fileutil"
	"pendingorders/internal/fingerprint"
	"pendingorders/internal/logging"
)

// Options tunes archival retries.
type Options struct {
	// MaxAttempts bounds the copy, verify and delete cycle. Values below 1 mean 1.
	MaxAttempts int
	// Backoff is the base wait; attempt n waits n*Backoff before attempt n+1.
	Backoff time.Duration
	// Settle is the pause between copying and verifying the destination size.
	Settle time.Duration
	// Now supplies timestamps for collision fallback names.
	Now func() time.Time
}

// Archiver moves processed intake files into the archive directory.
type Archiver struct {
	index  *Index
	opts   Options
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	// Copy and post-settle size check; replaceable in tests.
	copyFile   func(src, dst string) (int64, error)
	verifySize func(src, dst string) error
}

// NewArchiver returns an archiver writing into index's directory and recording
// successes through index.
func NewArchiver(index *Index, opts Options, logger *slog.Logger) *Archiver {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Archiver{
		index:  index,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "archiver"),
		sleep:  sleepContext,

		copyFile:   fileutil.CopyFileVerified,
		verifySize: fileutil.VerifySize,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Archive moves path into the archive under its fingerprinted name and returns
// the destination. On success the source no longer exists. On failure the
// source is left in place and no archive copy remains.
func (a *Archiver) Archive(ctx context.Context, path string, fp fingerprint.Fingerprint) (string, error) {
	if fp == "" {
		return "", faults.New(faults.KindInput, "archive", "fingerprint is required").WithPath(path)
	}
	if err := os.MkdirAll(a.index.Dir(), 0o755); err != nil {
		return "", faults.Wrap(faults.KindIO, "archive", "create archive directory", err).WithPath(a.index.Dir())
	}

	name := filepath.Base(path)
	stem, ext := SplitName(name)
	logger := logging.WithContext(ctx, a.logger)

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		dest, err := a.attempt(ctx, path, stem, ext, fp)
		if err == nil {
			a.index.Record(ctx, Entry{Path: dest, Stem: stem, Fingerprint: fp, Ext: ext}, name)
			logger.Debug("file archived",
				logging.String("destination", dest),
				logging.String(logging.FieldFingerprint, string(fp)),
				logging.Int("attempt", attempt),
			)
			return dest, nil
		}
		lastErr = err
		if faults.Is(err, faults.KindVerify) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if attempt == a.opts.MaxAttempts {
			break
		}
		wait := time.Duration(attempt) * a.opts.Backoff
		logger.Debug("archive attempt failed; retrying",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", a.opts.MaxAttempts),
			logging.Bool("locked", fileutil.IsLockError(err)),
			logging.Duration("backoff", wait),
			logging.Error(err),
		)
		if err := a.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	if fileutil.IsLockError(lastErr) {
		return "", faults.Wrap(faults.KindLock, "archive",
			fmt.Sprintf("file is locked after %d attempts; it is probably open in Excel or another program, close it and rerun", a.opts.MaxAttempts),
			lastErr).WithPath(path)
	}
	return "", faults.Wrap(faults.KindIO, "archive",
		fmt.Sprintf("archival failed after %d attempts", a.opts.MaxAttempts), lastErr).WithPath(path)
}

func (a *Archiver) attempt(ctx context.Context, src, stem, ext string, fp fingerprint.Fingerprint) (string, error) {
	dest, err := a.destination(ctx, stem, ext, fp)
	if err != nil {
		return "", err
	}

	if _, err := a.copyFile(src, dest); err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, fileutil.ErrSizeMismatch) || errors.Is(err, fileutil.ErrHashMismatch) {
			return "", faults.Wrap(faults.KindVerify, "archive", "archive copy failed verification", err).WithPath(src)
		}
		return "", err
	}

	if err := a.sleep(ctx, a.opts.Settle); err != nil {
		_ = os.Remove(dest)
		return "", err
	}

	if err := a.verifySize(src, dest); err != nil {
		_ = os.Remove(dest)
		if errors.Is(err, fileutil.ErrSizeMismatch) {
			return "", faults.Wrap(faults.KindVerify, "archive", "archive copy size differs from source", err).WithPath(src)
		}
		return "", err
	}

	if err := os.Remove(src); err != nil {
		// The source stays put; drop the copy so the content is not marked
		// archived while its intake file still exists.
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

// destination picks the archive path. An existing file at the canonical name is
// replaced; when it cannot be removed a timestamped alternate is used.
func (a *Archiver) destination(ctx context.Context, stem, ext string, fp fingerprint.Fingerprint) (string, error) {
	dir := a.index.Dir()
	dest := filepath.Join(dir, Name(stem, fp, ext))
	if _, err := os.Lstat(dest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dest, nil
		}
		return "", err
	}
	logger := logging.WithContext(ctx, a.logger)
	if err := os.Remove(dest); err != nil {
		stamp := fileutil.Stamp(a.opts.Now())
		alt := filepath.Join(dir, AlternateName(stem, fp, stamp, ext))
		logging.WarnWithContext(logger, "existing archive entry could not be removed; using alternate name", "archive_collision_fallback",
			logging.String("destination", alt),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the archive holds two copies of the same content"),
			logging.String(logging.FieldErrorHint, "remove the older copy when it is no longer locked"),
		)
		return alt, nil
	}
	logging.WarnWithContext(logger, "replaced existing archive entry", "archive_collision",
		logging.String("destination", dest),
		logging.String(logging.FieldImpact, "the previous copy with the same content was overwritten"),
		logging.String(logging.FieldErrorHint, "none; content is identical by fingerprint"),
	)
	return dest, nil
}
