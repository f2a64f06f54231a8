package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStableAndTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.xlsx")
	content := []byte("order export bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	second, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprint not stable: %s vs %s", first, second)
	}

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])[:Length]
	if string(first) != want {
		t.Fatalf("fingerprint = %s, want %s", first, want)
	}
}

func TestFileSingleByteChange(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.xlsx")
	b := filepath.Join(dir, "b.xlsx")
	if err := os.WriteFile(a, []byte("abcdef"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("abcdeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	fa, err := File(a)
	if err != nil {
		t.Fatal(err)
	}
	fb, err := File(b)
	if err != nil {
		t.Fatal(err)
	}
	if fa == fb {
		t.Fatalf("expected different fingerprints, both %s", fa)
	}
}

func TestReaderLargeInputMatchesFile(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("0123456789"), 50_000)
	path := filepath.Join(dir, "big.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	fromFile, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	fromReader, err := Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if fromFile != fromReader {
		t.Fatalf("file %s != reader %s", fromFile, fromReader)
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "gone.xlsx")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParse(t *testing.T) {
	cases := map[string]bool{
		"0123456789": true,
		"abcdef0123": true,
		"ABCDEF0123": false,
		"abc":        false,
		"abcdefghij": false,
	}
	for in, ok := range cases {
		if _, got := Parse(in); got != ok {
			t.Errorf("Parse(%q) = %v, want %v", in, got, ok)
		}
	}
	if got := Fingerprint("").OrUnknown(); got != Unknown {
		t.Fatalf("OrUnknown = %q", got)
	}
}
