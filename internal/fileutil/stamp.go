package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StampLayout is the timestamp format embedded in generated file names.
const StampLayout = "20060102_150405"

// Stamp formats t for use in a file name.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// UniquePath returns dir/<base><ext>, or dir/<base>_<n><ext> for the smallest
// n that does not exist yet.
func UniquePath(dir, base, ext string) (string, error) {
	for n := 0; n < 1000; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, name)
		_, err := os.Lstat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free name for %s%s in %s", base, ext, dir)
}
