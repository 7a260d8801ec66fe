package securefs

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic stages data into a uniquely named temporary sibling of dst,
// syncs it, sets its mode, and renames it into place. The destination is
// never observed partially written: concurrent writers to the same
// destination each stage into their own temp file and the last rename wins.
//
// On any failure after the temp file was created it is removed before the
// error propagates, leaving the destination directory exactly as it was.
func writeAtomic(dst string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dst)
	base := filepath.Base(dst)

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	var staged bool
	defer func() {
		if !staged {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("failed to set mode on temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	staged = true
	return nil
}
