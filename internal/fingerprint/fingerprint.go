package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Length is the number of hex characters kept from the digest.
const Length = 10

const chunkSize = 64 * 1024

// Fingerprint is a truncated, lowercase hex SHA-256 content digest.
type Fingerprint string

// Unknown is logged in place of a fingerprint that could not be computed.
const Unknown = "unknown"

func (f Fingerprint) String() string { return string(f) }

// OrUnknown returns the fingerprint, or "unknown" when it is empty.
func (f Fingerprint) OrUnknown() string {
	if f == "" {
		return Unknown
	}
	return string(f)
}

// File fingerprints the file at path.
func File(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	fp, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fp, nil
}

// Reader fingerprints everything readable from r.
func Reader(r io.Reader) (Fingerprint, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))[:Length]), nil
}

// Parse validates s as a fingerprint.
func Parse(s string) (Fingerprint, bool) {
	if len(s) != Length {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}
	return Fingerprint(s), true
}
