package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteRetriesWhileDatabaseIsBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ledger.db")
	holder, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer holder.Close()
	writer, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()
	// Without a busy timeout every lock conflict surfaces at once.
	if _, err := writer.db.Exec("PRAGMA busy_timeout=0"); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	tx, err := holder.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO archive_entries (`+archiveColumns+`) VALUES (?, ?, ?, ?, ?)`,
		"1111111111", "/archive/a.xlsx", "a.xlsx", formatTime(time.Now()), "run-a"); err != nil {
		t.Fatal(err)
	}

	entry := ArchiveEntry{Fingerprint: "2222222222", ArchivePath: "/archive/b.xlsx", OriginalName: "b.xlsx"}
	if err := writer.RecordArchive(ctx, entry); !isBusy(err) {
		t.Fatalf("expected busy error while the write lock is held, got %v", err)
	}

	released := make(chan error, 1)
	time.AfterFunc(60*time.Millisecond, func() { released <- tx.Commit() })
	if err := writer.RecordArchive(ctx, entry); err != nil {
		t.Fatalf("write should succeed once the lock is released: %v", err)
	}
	if err := <-released; err != nil {
		t.Fatal(err)
	}
	for _, fp := range []string{"1111111111", "2222222222"} {
		if got, err := writer.LookupArchive(ctx, fp); err != nil || got == nil {
			t.Fatalf("entry %s missing: %v", fp, err)
		}
	}
}

func TestWithBusyRetryLeavesOtherErrorsAlone(t *testing.T) {
	calls := 0
	plain := errors.New("database is locked")
	err := withBusyRetry(context.Background(), func() error {
		calls++
		return plain
	})
	if !errors.Is(err, plain) || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
	if isBusy(nil) || isBusy(plain) {
		t.Fatal("only SQLite busy codes count as busy")
	}
}
