package runner_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"pendingorders/internal/archive"
	"pendingorders/internal/config"
	"pendingorders/internal/extract"
	"pendingorders/internal/faults"
	"pendingorders/internal/fingerprint"
	"pendingorders/internal/ledger"
	"pendingorders/internal/report"
	"pendingorders/internal/runner"
	"pendingorders/internal/sheet"
	"pendingorders/internal/testsupport"
)

var orderHeader = []string{"訂單編號", "訂單狀態", "訂單成立日期", "寄送方式", "包裹查詢號碼"}

type harness struct {
	cfg      *config.Config
	progress *bytes.Buffer
	runner   *runner.Runner
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.WriteShopDirectory(t, cfg.ShopDirectoryPath(),
		testsupport.Shop{ID: "SH0001", Name: "台北店", Active: true},
		testsupport.Shop{ID: "SH0004", Name: "高雄店", Active: true},
	)
	h := &harness{cfg: cfg, progress: &bytes.Buffer{}, clock: time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)}
	h.runner = runner.New(cfg, runner.Options{
		Console:  &bytes.Buffer{},
		Progress: h.progress,
		Now: func() time.Time {
			h.clock = h.clock.Add(time.Second)
			return h.clock
		},
	})
	return h
}

// freezeClock makes every timestamp of the next runs equal to at.
func (h *harness) freezeClock(at time.Time) {
	h.clock = at
	h.runner = runner.New(h.cfg, runner.Options{
		Console:  &bytes.Buffer{},
		Progress: h.progress,
		Now:      func() time.Time { return at },
	})
}

func (h *harness) run(t *testing.T) runner.Summary {
	t.Helper()
	summary, err := h.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return summary
}

func (h *harness) writeOrders(t *testing.T, name string, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(h.cfg.Paths.RawDir, name)
	testsupport.WriteOrdersXLSX(t, path, orderHeader, rows...)
	return path
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunProcessesArchivesAndMerges(t *testing.T) {
	h := newHarness(t)
	h.writeOrders(t, "orders_SH0004_20250101.xlsx",
		[]string{"ORD-1", "待出貨", "2025-01-01", "7-11", "TW111"},
		[]string{"ORD-2", "已完成", "2025-01-01", "全家", "TW222"},
		[]string{"ORD-1", "待出貨", "2025-01-02", "黑貓", "TW333"},
	)
	h.writeOrders(t, "orders_SH0001_20250101.xlsx",
		[]string{"ORD-9", "待出貨", "2024-12-30", "全家", "TW999"},
	)

	summary := h.run(t)
	if summary.Found != 2 || summary.Processed != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if summary.ReportPath == "" || summary.Rows != 2 {
		t.Fatalf("expected a merged report with 2 rows, got %#v", summary)
	}
	if got := listDir(t, h.cfg.Paths.RawDir); len(got) != 0 {
		t.Fatalf("expected empty intake, got %v", got)
	}
	if got := listDir(t, h.cfg.Paths.ArchiveDir); len(got) != 2 {
		t.Fatalf("expected two archived files, got %v", got)
	}
	if got := listDir(t, h.cfg.Paths.TempDir); len(got) != 2 {
		t.Fatalf("expected temp csv per input, got %v", got)
	}

	table, err := sheet.ReadCSV(summary.ReportPath)
	if err != nil {
		t.Fatal(err)
	}
	first := extract.OrderFromRow(table.Rows[0])
	second := extract.OrderFromRow(table.Rows[1])
	if first.Branch != "台北店" || first.OrderID != "ORD-9" {
		t.Fatalf("unexpected first row %#v", first)
	}
	if second.Branch != "高雄店" || second.OrderID != "ORD-1" || second.TrackingNumber != "TW111" {
		t.Fatalf("unexpected second row %#v", second)
	}

	logData, err := os.ReadFile(summary.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "PROCESSED | orders_SH0004_20250101.xlsx | hash=") {
		t.Fatalf("run log lacks PROCESSED line: %s", logData)
	}
	if !strings.Contains(h.progress.String(), "[1/2] processing: orders_SH0001_20250101.xlsx") {
		t.Fatalf("unexpected progress output %q", h.progress.String())
	}
}

func TestRunIsIdempotentByContent(t *testing.T) {
	h := newHarness(t)
	path := h.writeOrders(t, "orders_SH0004_a.xlsx",
		[]string{"ORD-1", "待出貨", "2025-01-01", "7-11", "TW111"},
	)
	keep := filepath.Join(t.TempDir(), "copy.xlsx")
	copyFile(t, path, keep)

	first := h.run(t)
	if first.Processed != 1 {
		t.Fatalf("first run: %#v", first)
	}
	reports := len(listDir(t, h.cfg.Paths.ProcessedDir))

	copyFile(t, keep, filepath.Join(h.cfg.Paths.RawDir, "renamed_SH0004_b.xlsx"))
	second := h.run(t)
	if second.Found != 0 || second.Processed != 0 || second.Duplicates != 1 {
		t.Fatalf("second run: %#v", second)
	}
	if second.ReportPath != "" {
		t.Fatalf("expected no report for an empty run, got %s", second.ReportPath)
	}
	if got := listDir(t, h.cfg.Paths.RawDir); len(got) != 0 {
		t.Fatalf("duplicate should be removed from intake, got %v", got)
	}
	if got := len(listDir(t, h.cfg.Paths.ProcessedDir)); got != reports {
		t.Fatalf("processed dir changed on a duplicate-only run: %d -> %d", reports, got)
	}
	if got := listDir(t, h.cfg.Paths.ArchiveDir); len(got) != 1 {
		t.Fatalf("archive should still hold one file, got %v", got)
	}
}

func TestRunInBatchDuplicateIsDiscardedAtRecheck(t *testing.T) {
	h := newHarness(t)
	path := h.writeOrders(t, "a_SH0004_.xlsx",
		[]string{"ORD-1", "待出貨", "2025-01-01", "7-11", "TW111"},
	)
	copyFile(t, path, filepath.Join(h.cfg.Paths.RawDir, "b_SH0004_.xlsx"))

	summary := h.run(t)
	if summary.Found != 2 || summary.Processed != 1 || summary.Duplicates != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if got := listDir(t, h.cfg.Paths.RawDir); len(got) != 0 {
		t.Fatalf("expected empty intake, got %v", got)
	}
	if summary.Rows != 1 {
		t.Fatalf("expected one merged row, got %d", summary.Rows)
	}
}

func TestRunFailureKeepsFileInIntake(t *testing.T) {
	h := newHarness(t)
	bad := filepath.Join(h.cfg.Paths.RawDir, "broken_SH0004_.xlsx")
	testsupport.WriteOrdersXLSX(t, bad, []string{"訂單編號", "寄送方式"}, []string{"ORD-1", "7-11"})
	h.writeOrders(t, "good_SH0001_.xlsx",
		[]string{"ORD-5", "待出貨", "2025-01-05", "全家", "TW555"},
	)

	summary := h.run(t)
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if got := listDir(t, h.cfg.Paths.RawDir); len(got) != 1 || got[0] != "broken_SH0004_.xlsx" {
		t.Fatalf("failed file should stay in intake, got %v", got)
	}
	for _, name := range listDir(t, h.cfg.Paths.ProcessedDir) {
		if strings.Contains(name, "broken") {
			t.Fatalf("per-file output left for failed input: %s", name)
		}
	}
	logData, err := os.ReadFile(summary.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "ERROR | broken_SH0004_.xlsx | hash=") {
		t.Fatalf("run log lacks ERROR line: %s", logData)
	}

	again := h.run(t)
	if again.Found != 1 || again.Failed != 1 {
		t.Fatalf("failed file should be retried, got %#v", again)
	}
}

func TestRunMissingShopDirectoryIsFatal(t *testing.T) {
	h := newHarness(t)
	if err := os.Remove(h.cfg.ShopDirectoryPath()); err != nil {
		t.Fatal(err)
	}
	path := h.writeOrders(t, "orders_SH0004_.xlsx",
		[]string{"ORD-1", "待出貨", "2025-01-01", "7-11", "TW111"},
	)

	_, err := h.runner.Run(context.Background())
	if !faults.IsFatal(err) {
		t.Fatalf("expected fatal config error, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("intake file should be untouched: %v", statErr)
	}

	store := testsupport.MustOpenLedger(t, h.cfg)
	runs, err := store.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].State != ledger.RunFailed || runs[0].Error == "" {
		t.Fatalf("expected one failed run in history, got %#v", runs)
	}
}

func TestRunRefusesWhenLockHeld(t *testing.T) {
	h := newHarness(t)
	lock := flock.New(h.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer func() { _ = lock.Unlock() }()

	_, err = h.runner.Run(context.Background())
	if !errors.Is(err, runner.ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
	if !faults.Is(err, faults.KindLock) {
		t.Fatalf("expected lock kind, got %v", err)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	h := newHarness(t)
	h.writeOrders(t, "orders_SH0004_.xlsx",
		[]string{"ORD-1", "待出貨", "2025-01-01", "7-11", "TW111"},
	)
	summary := h.run(t)

	store := testsupport.MustOpenLedger(t, h.cfg)
	ctx := context.Background()
	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].State != ledger.RunCompleted || runs[0].Processed != 1 {
		t.Fatalf("unexpected history %#v", runs)
	}
	events, err := store.FileEvents(ctx, summary.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Outcome != "archived" || events[0].FileName != "orders_SH0004_.xlsx" {
		t.Fatalf("unexpected file events %#v", events)
	}
	entry, err := store.LookupArchive(ctx, events[0].Fingerprint)
	if err != nil || entry == nil || entry.RunID != summary.RunID {
		t.Fatalf("archive entry not recorded: %#v %v", entry, err)
	}
}

func TestRunWithoutFilesSkipsMerge(t *testing.T) {
	h := newHarness(t)
	summary := h.run(t)
	if summary.Found != 0 || summary.ReportPath != "" {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if !strings.Contains(h.progress.String(), "no new files to process") {
		t.Fatalf("unexpected progress %q", h.progress.String())
	}
}

func TestRunArchiveFailureKeepsFileAndExcludesItFromReport(t *testing.T) {
	h := newHarness(t)
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	h.freezeClock(at)
	h.cfg.Archive.MaxAttempts = 1

	stuck := h.writeOrders(t, "stuck_SH0004_.xlsx",
		[]string{"ORD-7", "待出貨", "2025-01-07", "7-11", "TW777"},
	)
	h.writeOrders(t, "good_SH0001_.xlsx",
		[]string{"ORD-5", "待出貨", "2025-01-05", "全家", "TW555"},
	)
	fp, err := fingerprint.File(stuck)
	if err != nil {
		t.Fatal(err)
	}
	// Non-empty directories at both candidate archive names make every
	// archive attempt for the stuck file fail.
	for _, name := range []string{
		archive.Name("stuck_SH0004_", fp, ".xlsx"),
		archive.AlternateName("stuck_SH0004_", fp, "20250301_093000", ".xlsx"),
	} {
		blocker := filepath.Join(h.cfg.Paths.ArchiveDir, name)
		if err := os.MkdirAll(blocker, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(blocker, "keep"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	summary := h.run(t)
	if summary.Found != 2 || summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if got := listDir(t, h.cfg.Paths.RawDir); len(got) != 1 || got[0] != "stuck_SH0004_.xlsx" {
		t.Fatalf("file that failed to archive should stay in intake, got %v", got)
	}
	for _, name := range listDir(t, h.cfg.Paths.ProcessedDir) {
		if strings.HasPrefix(name, extract.OutputPrefix+"stuck") {
			t.Fatalf("per-file output left for unarchived input: %s", name)
		}
	}

	table, err := sheet.ReadCSV(summary.ReportPath)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 1 || extract.OrderFromRow(table.Rows[0]).OrderID != "ORD-5" {
		t.Fatalf("report should hold only the archived file's rows, got %#v", table.Rows)
	}

	logData, err := os.ReadFile(summary.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "ERROR | stuck_SH0004_.xlsx | hash="+fp.String()) {
		t.Fatalf("run log lacks ERROR line for the stuck file: %s", logData)
	}
}

func TestRunStampsReportWithInjectedClock(t *testing.T) {
	h := newHarness(t)
	at := time.Date(2025, 4, 2, 8, 15, 30, 0, time.Local)
	h.freezeClock(at)
	h.writeOrders(t, "orders_SH0004_.xlsx",
		[]string{"ORD-1", "待出貨", "2025-01-01", "7-11", "TW111"},
	)

	summary := h.run(t)
	if want := report.Name(at) + ".csv"; filepath.Base(summary.ReportPath) != want {
		t.Fatalf("report = %s, want %s", filepath.Base(summary.ReportPath), want)
	}
}
