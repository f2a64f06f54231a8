package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"pendingorders/internal/archive"
	"pendingorders/internal/columns"
	"pendingorders/internal/config"
	"pendingorders/internal/extract"
	"pendingorders/internal/faults"
	"pendingorders/internal/intake"
	"pendingorders/internal/ledger"
	"pendingorders/internal/logging"
	"pendingorders/internal/report"
	"pendingorders/internal/shops"
	"pendingorders/internal/staging"
)

// State names a step of the run state machine.
type State string

const (
	StateInit          State = "init"
	StateCleanTemp     State = "clean_temp"
	StateLoadDirectory State = "load_directory"
	StateScan          State = "scan"
	StateRecheck       State = "recheck"
	StateExtract       State = "extract"
	StateArchive       State = "archive"
	StateMerge         State = "merge"
	StateDone          State = "done"
)

// ErrRunLocked reports that another run holds the run lock.
var ErrRunLocked = errors.New("another pendingorders run is in progress")

// Options adjusts a Runner's environment.
type Options struct {
	// Console receives warn+ log records; defaults to stderr.
	Console io.Writer
	// Progress receives operator progress lines; defaults to stdout.
	Progress io.Writer
	Now      func() time.Time
	NewRunID func() string
}

// Summary reports the outcome of one run.
type Summary struct {
	RunID      string
	LogPath    string
	Found      int
	Processed  int
	Failed     int
	Duplicates int
	Vanished   int
	ReportPath string
	Rows       int
}

// Runner executes batch runs for one configured root.
type Runner struct {
	cfg  *config.Config
	opts Options
}

// New returns a runner for cfg.
func New(cfg *config.Config, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	if opts.Progress == nil {
		opts.Progress = os.Stdout
	}
	return &Runner{cfg: cfg, opts: opts}
}

// run holds the collaborators of one invocation.
type run struct {
	cfg      *config.Config
	id       string
	now      func() time.Time
	log      *logging.RunLog
	logger   *slog.Logger
	store    *ledger.Store
	index    *archive.Index
	scanner  *intake.Scanner
	archiver *archive.Archiver
	pipeline *extract.Pipeline
	summary  Summary
}

// Run executes one batch. The returned error is non-nil only for failures that
// abort the whole run; per-file failures are reflected in the Summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := r.cfg
	started := r.opts.Now()
	summary := Summary{RunID: r.opts.NewRunID()}

	if err := cfg.EnsureDirectories(); err != nil {
		return summary, faults.Wrap(faults.KindIO, "init", "create working directories", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return summary, faults.Wrap(faults.KindLock, "init", "acquire run lock", err).WithPath(cfg.LockPath())
	}
	if !locked {
		return summary, faults.Wrap(faults.KindLock, "init", "run lock is held", ErrRunLocked).WithPath(cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	runLog, err := logging.OpenRunLog(logging.RunLogOptions{
		Dir:          cfg.Paths.LogDir,
		Started:      started,
		RunID:        summary.RunID,
		Format:       cfg.Logging.Format,
		Level:        cfg.Logging.Level,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
		Console:      r.opts.Console,
		Progress:     r.opts.Progress,
	})
	if err != nil {
		return summary, faults.Wrap(faults.KindIO, "init", "open run log", err).WithPath(cfg.Paths.LogDir)
	}
	defer runLog.Close()
	summary.LogPath = runLog.Path

	ctx = logging.WithRunID(ctx, summary.RunID)
	st := &run{
		cfg:     cfg,
		id:      summary.RunID,
		now:     r.opts.Now,
		log:     runLog,
		logger:  logging.NewComponentLogger(runLog.Logger, "runner"),
		summary: summary,
	}
	runErr := st.execute(ctx, started)
	st.finish(ctx, runErr)
	return st.summary, runErr
}

func (st *run) enter(ctx context.Context, state State) context.Context {
	ctx = logging.WithStage(ctx, string(state))
	st.logger.Debug("state entered", logging.String(logging.FieldStage, string(state)))
	return ctx
}

func (st *run) execute(ctx context.Context, started time.Time) error {
	cfg := st.cfg
	st.enter(ctx, StateInit)
	st.log.Progress("starting run %s", st.id)
	st.logger.Info("run started",
		logging.String("root", cfg.Paths.Root),
		logging.String("started", started.Format(time.RFC3339)),
	)

	logging.CleanupOldLogs(st.logger, cfg.LogRetention(), logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: logging.RunLogPattern,
		Exclude: []string{st.log.Path},
	})
	st.openLedger(ctx, started)

	var idxLedger archive.Ledger
	if st.store != nil {
		idxLedger = st.store
	}
	st.index = archive.NewIndex(cfg.Paths.ArchiveDir, idxLedger, st.log.Logger)
	st.archiver = archive.NewArchiver(st.index, archive.Options{
		MaxAttempts: cfg.Archive.MaxAttempts,
		Backoff:     cfg.RetryBackoff(),
		Settle:      cfg.SettleDelay(),
		Now:         st.now,
	}, st.log.Logger)
	st.scanner = intake.NewScanner(cfg.Paths.RawDir, cfg.Intake.Extensions, st.index, st.log.Logger)

	st.enter(ctx, StateCleanTemp)
	staging.CleanTemp(cfg.Paths.TempDir, st.logger)

	dctx := st.enter(ctx, StateLoadDirectory)
	directory, err := shops.Load(cfg.ShopDirectoryPath(), cfg.Shops.Platform)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(dctx, st.logger), "shop directory unavailable; aborting run", "shop_directory_failed",
			logging.String(logging.FieldErrorKind, string(faults.KindOf(err))),
			logging.String(logging.FieldErrorHint, "check "+cfg.ShopDirectoryPath()),
			logging.Error(err),
		)
		st.log.Progress("fatal: %v", err)
		return err
	}
	st.logger.Info("shop directory loaded", logging.Int("shops", directory.Len()))

	aliases, err := columns.Load(cfg.Columns.AliasesPath)
	if err != nil {
		err = faults.Wrap(faults.KindConfig, "load column aliases", "cannot load column alias file", err).WithPath(cfg.Columns.AliasesPath)
		logging.ErrorWithContext(logging.WithContext(dctx, st.logger), "column aliases unavailable; aborting run", "column_aliases_failed",
			logging.String(logging.FieldErrorHint, "fix or remove columns.aliases_path"),
			logging.Error(err),
		)
		st.log.Progress("fatal: %v", err)
		return err
	}
	st.pipeline = extract.NewPipeline(extract.Options{
		TempDir:   cfg.Paths.TempDir,
		OutputDir: cfg.Paths.ProcessedDir,
		Aliases:   aliases,
		Directory: directory,
	}, st.log.Logger)

	sctx := st.enter(ctx, StateScan)
	scan, err := st.scanner.Scan(sctx)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(sctx, st.logger), "intake scan failed; aborting run", "scan_failed",
			logging.String(logging.FieldErrorHint, "check raw_dir and archive_dir permissions"),
			logging.Error(err),
		)
		st.log.Progress("fatal: %v", err)
		return err
	}
	st.summary.Found = scan.Included()
	st.summary.Duplicates = scan.Duplicates
	st.summary.Vanished = scan.Vanished
	st.logger.Info("intake scanned",
		logging.Int("candidates", scan.Found),
		logging.Int("included", scan.Included()),
		logging.Int("duplicates", scan.Duplicates),
		logging.Int("vanished", scan.Vanished),
		logging.Int("unhashable", scan.Unhashable),
	)
	if scan.Included() == 0 {
		st.log.Progress("no new files to process")
		st.enter(ctx, StateDone)
		return nil
	}
	st.log.Progress("found %d file(s) to process", scan.Included())

	outputs := newOutputSet()
	for i, rec := range scan.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		st.log.Progress("[%d/%d] processing: %s", i+1, scan.Included(), rec.Name)
		if out, ok := st.processFile(ctx, rec); ok {
			outputs.add(out)
		}
	}

	mctx := st.enter(ctx, StateMerge)
	if outputs.len() > 0 {
		merger := report.NewMerger(cfg.Paths.ProcessedDir, st.now, st.log.Logger)
		res, err := merger.Merge(mctx, outputs.paths())
		if err != nil {
			logging.ErrorWithContext(logging.WithContext(mctx, st.logger), "merge failed", "merge_failed",
				logging.String(logging.FieldErrorHint, "per-file outputs remain in the processed directory"),
				logging.Error(err),
			)
			st.log.Progress("merge failed: %v", err)
		} else if res.Path != "" {
			st.summary.ReportPath = res.Path
			st.summary.Rows = res.Rows
			st.log.Progress("merged: %s (%d rows)", filepath.Base(res.Path), res.Rows)
		} else {
			st.log.Progress("nothing to merge")
		}
	}

	st.enter(ctx, StateDone)
	st.log.Progress("finished: %d processed, %d failed, %d duplicate(s)",
		st.summary.Processed, st.summary.Failed, st.summary.Duplicates)
	st.logger.Info("run finished",
		logging.Int("processed", st.summary.Processed),
		logging.Int("failed", st.summary.Failed),
		logging.Int("duplicates", st.summary.Duplicates),
		logging.String("report", st.summary.ReportPath),
		logging.String("log", st.log.Path),
	)
	return nil
}

func (st *run) openLedger(ctx context.Context, started time.Time) {
	store, err := ledger.Open(st.cfg.Paths.LedgerPath)
	if err != nil {
		logging.WarnWithContext(st.logger, "ledger unavailable; continuing without it", "ledger_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "archive lookups scan the directory and run history is not recorded"),
			logging.String(logging.FieldErrorHint, "delete the ledger file and run 'pendingorders archive reindex'"),
		)
		return
	}
	if err := store.BeginRun(ctx, st.id, started); err != nil {
		logging.WarnWithContext(st.logger, "failed to record run start", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
	st.store = store
}

func (st *run) finish(ctx context.Context, runErr error) {
	if st.store == nil {
		return
	}
	defer st.store.Close()
	state := ledger.RunCompleted
	msg := ""
	if runErr != nil {
		state = ledger.RunFailed
		msg = runErr.Error()
	}
	err := st.store.FinishRun(context.WithoutCancel(ctx), ledger.Run{
		RunID:      st.id,
		State:      state,
		FilesFound: st.summary.Found,
		Processed:  st.summary.Processed,
		Failed:     st.summary.Failed,
		Duplicates: st.summary.Duplicates,
		ReportPath: st.summary.ReportPath,
		Error:      msg,
	})
	if err != nil {
		logging.WarnWithContext(st.logger, "failed to record run result", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}

func (st *run) recordEvent(ctx context.Context, rec intake.Record) {
	if st.store == nil {
		return
	}
	err := st.store.RecordFileEvent(context.WithoutCancel(ctx), ledger.FileEvent{
		RunID:       st.id,
		FileName:    rec.Name,
		Fingerprint: string(rec.Fingerprint),
		Outcome:     string(rec.Outcome),
		Detail:      rec.Detail,
	})
	if err != nil {
		st.logger.Debug("file event not recorded", logging.Error(err))
	}
}

// outputSet collects per-file outputs in processing order, once per path.
type outputSet struct {
	order []string
	seen  map[string]struct{}
}

func newOutputSet() *outputSet {
	return &outputSet{seen: make(map[string]struct{})}
}

func (s *outputSet) add(path string) {
	if _, ok := s.seen[path]; ok {
		return
	}
	s.seen[path] = struct{}{}
	s.order = append(s.order, path)
}

func (s *outputSet) len() int        { return len(s.order) }
func (s *outputSet) paths() []string { return s.order }

// ProcessedLine formats the structured success line of the run log.
func ProcessedLine(name, fp, output string) string {
	return fmt.Sprintf("PROCESSED | %s | hash=%s | exported %s", name, fp, output)
}

// ErrorLine formats the structured failure line of the run log.
func ErrorLine(name, fp, message string) string {
	return fmt.Sprintf("ERROR | %s | hash=%s | %s", name, fp, message)
}
