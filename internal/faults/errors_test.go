package faults_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pendingorders/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := faults.Wrap(faults.KindIO, "archive", "copy failed", base).WithPath("/tmp/a.xlsx")
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to be retained, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"archive", "copy failed", "/tmp/a.xlsx", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	inner := faults.New(faults.KindSchema, "extract", "status column missing")
	outer := fmt.Errorf("process file: %w", inner)
	if got := faults.KindOf(outer); got != faults.KindSchema {
		t.Fatalf("KindOf = %q, want %q", got, faults.KindSchema)
	}
	if faults.KindOf(errors.New("plain")) != "" {
		t.Fatal("expected empty kind for plain errors")
	}
}

func TestIsFatal(t *testing.T) {
	if !faults.IsFatal(faults.New(faults.KindConfig, "shops", "no qualifying shops")) {
		t.Fatal("config errors must be fatal")
	}
	if faults.IsFatal(faults.New(faults.KindInput, "extract", "empty")) {
		t.Fatal("input errors must not be fatal")
	}
	if faults.IsFatal(nil) {
		t.Fatal("nil is not fatal")
	}
}

func TestErrorWithoutMessageFallsBackToKind(t *testing.T) {
	err := &faults.Error{Kind: faults.KindLock}
	if err.Error() != "lock failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
