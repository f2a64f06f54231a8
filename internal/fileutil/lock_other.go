//go:build !unix && !windows

package fileutil

import (
	"errors"
	"os"
)

// IsLockError reports whether err means another process holds the file.
func IsLockError(err error) bool {
	return err != nil && errors.Is(err, os.ErrPermission)
}
