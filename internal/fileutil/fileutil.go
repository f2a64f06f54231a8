package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrSizeMismatch reports a copy whose destination size differs from its source.
	ErrSizeMismatch = errors.New("copy size mismatch")
	// ErrHashMismatch reports a copy whose bytes changed in transit.
	ErrHashMismatch = errors.New("copy hash mismatch")
)

// CopyFileVerified streams src to dst with SHA256 + size integrity verification
// and preserves the source modification time. Removes dst on mismatch.
func CopyFileVerified(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return written, err
	}
	if err := out.Sync(); err != nil {
		return written, err
	}
	if err := out.Close(); err != nil {
		return written, err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return written, fmt.Errorf("%w: source %d bytes, copied %d bytes", ErrSizeMismatch, srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return written, fmt.Errorf("%w: file corrupted during copy", ErrHashMismatch)
	}

	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	return written, nil
}

// VerifySize compares the on-disk sizes of src and dst. A mismatch wraps
// ErrSizeMismatch.
func VerifySize(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}
	if srcInfo.Size() != dstInfo.Size() {
		return fmt.Errorf("%w: source %d bytes, copied %d bytes", ErrSizeMismatch, srcInfo.Size(), dstInfo.Size())
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
