package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pendingorders/internal/logging"
)

func TestRunLogWritesFileAndConsoleSubset(t *testing.T) {
	dir := t.TempDir()
	var console, progress bytes.Buffer
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

	runLog, err := logging.OpenRunLog(logging.RunLogOptions{
		Dir:          dir,
		Started:      started,
		RunID:        "run-42",
		Level:        "debug",
		ConsoleLevel: "warn",
		Console:      &console,
		Progress:     &progress,
	})
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	if filepath.Base(runLog.Path) != "processing_20250102_030405.log" {
		t.Fatalf("unexpected run log name %q", runLog.Path)
	}

	runLog.Logger.Info("PROCESSED | a.xlsx | hash=0123456789 | exported out.csv")
	runLog.Logger.Warn("something odd")
	runLog.Progress("[%d/%d] processing: %s", 1, 2, "a.xlsx")
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := runLog.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	content, err := os.ReadFile(runLog.Path)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{"PROCESSED | a.xlsx | hash=0123456789", "something odd", "[1/2] processing: a.xlsx", "run_id=run-42"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in run log %q", fragment, text)
		}
	}
	if strings.Contains(console.String(), "PROCESSED") || !strings.Contains(console.String(), "something odd") {
		t.Fatalf("unexpected console output %q", console.String())
	}
	if progress.String() != "[1/2] processing: a.xlsx\n" {
		t.Fatalf("unexpected progress output %q", progress.String())
	}
}

func TestRunLogNeverReusesAFile(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	opts := logging.RunLogOptions{Dir: dir, Started: started, Console: &bytes.Buffer{}, Progress: &bytes.Buffer{}}

	first, err := logging.OpenRunLog(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	second, err := logging.OpenRunLog(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if first.Path == second.Path {
		t.Fatalf("expected distinct run logs, both at %s", first.Path)
	}
}
