package archive

import (
	"path/filepath"
	"regexp"
	"strings"

	"pendingorders/internal/fingerprint"
)

// Marker separates the original stem from the fingerprint in archive names.
const Marker = "__sha256_"

var namePattern = regexp.MustCompile(`^(.*)` + Marker + `([0-9a-f]{10})(?:_(\d{8}_\d{6}))?(\.[^.]*)?$`)

// Entry describes one file at rest in the archive.
type Entry struct {
	Path        string
	Stem        string
	Fingerprint fingerprint.Fingerprint
	Ext         string
	// Stamp is set for entries written under the collision fallback name.
	Stamp string
	Size  int64
}

// Name returns the archive file name for an input stem, fingerprint and extension.
func Name(stem string, fp fingerprint.Fingerprint, ext string) string {
	return stem + Marker + string(fp) + ext
}

// AlternateName is the collision fallback: Name with a timestamp before the extension.
func AlternateName(stem string, fp fingerprint.Fingerprint, stamp, ext string) string {
	return stem + Marker + string(fp) + "_" + stamp + ext
}

// SplitName splits a file name into stem and extension.
func SplitName(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// ParseName recovers the parts of an archive file name.
func ParseName(name string) (Entry, bool) {
	m := namePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return Entry{}, false
	}
	return Entry{
		Stem:        m[1],
		Fingerprint: fingerprint.Fingerprint(m[2]),
		Stamp:       m[3],
		Ext:         m[4],
	}, true
}
