//go:build !windows

package fileutil

import "os"

func replaceFile(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
