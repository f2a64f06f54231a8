//go:build unix

package fileutil

import (
	"errors"

	"golang.org/x/sys/unix"
)

// IsLockError reports whether err means another process holds the file.
// POSIX has no mandatory locks; permission and busy errors are what a copy or
// unlink sees when a share or editor keeps the file pinned.
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.EACCES) ||
		errors.Is(err, unix.EPERM) ||
		errors.Is(err, unix.EBUSY) ||
		errors.Is(err, unix.ETXTBSY)
}
