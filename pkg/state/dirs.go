// Package state owns the on-disk layout under the database path.
package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// StorePath is where the pebble record store lives under dbPath.
func StorePath(dbPath string) string {
	return filepath.Join(dbPath, "store")
}

// EnsureDirs creates the directory layout under dbPath and checks that each
// directory is a real, writable directory.
func EnsureDirs(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path is empty")
	}
	for _, p := range []string{StorePath(dbPath)} {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("cannot create parent for %s: %w", p, err)
		}
		if fi, err := os.Lstat(p); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink: %s", p)
			}
			if !fi.IsDir() {
				return fmt.Errorf("path exists and is not a directory: %s", p)
			}
		}
		if err := os.MkdirAll(p, 0o700); err != nil {
			return fmt.Errorf("cannot create path %s: %w", p, err)
		}

		tmp, err := os.CreateTemp(p, ".validate-*")
		if err != nil {
			return fmt.Errorf("path not writable: %s: %w", p, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}
	return nil
}
