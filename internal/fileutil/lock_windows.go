//go:build windows

package fileutil

import (
	"errors"

	"golang.org/x/sys/windows"
)

// IsLockError reports whether err means another process holds the file, as
// Excel does for every workbook it has open.
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION) ||
		errors.Is(err, windows.ERROR_ACCESS_DENIED)
}
