// Package fingerprint computes the content identity of intake files.
//
// A fingerprint is the first 10 hex characters of the SHA-256 digest of a
// file's raw bytes. It is computed before any processing touches the file and
// is embedded in archive names, so two files with the same bytes share a
// fingerprint regardless of name or location.
//
// Primary entry points:
//   - File: fingerprint a file on disk, streaming in bounded chunks
//   - Reader: fingerprint an arbitrary stream
//   - Parse: validate a fingerprint recovered from a file name
package fingerprint
