// Package gitutil provides git-root discovery and canonical-path
// resolution shared by the config cascade and the import resolver's
// cycle detector.
package gitutil

import (
	"os"
	"path/filepath"
)

// FindRoot walks up from dir looking for the nearest ancestor containing
// a ".git" entry — a regular directory for a normal clone, or a regular
// file for a worktree. Returns ("", false) if none is found before the
// filesystem root.
func FindRoot(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	cur := abs
	for {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		cur = parent
	}
}

// Canonical resolves path to its canonical, symlink-free absolute form,
// used by the import resolver's cycle detector to recognize the same
// file reached via different relative paths or symlinks.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return real, nil
}
