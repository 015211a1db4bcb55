package condition

import (
	"os"
	"path/filepath"
)

// SearchTree reports whether name exists in origin or any of its ancestors.
// The search stops after checking home or the filesystem root.
func SearchTree(origin, name, home string) bool {
	if origin == "" || name == "" {
		return false
	}

	dir := filepath.Clean(origin)
	if home != "" {
		home = filepath.Clean(home)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}

		if dir == home {
			return false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}

		dir = parent
	}
}
