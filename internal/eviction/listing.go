package eviction

import (
	"os"
	"path/filepath"
)

// List returns the absolute paths of the entries currently in dir.
// The order is whatever the directory enumeration yields.
func List(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, unreadable("abs", dir, err)
	}
	names, err := os.ReadDir(abs)
	if err != nil {
		return nil, unreadable("readdir", abs, err)
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(abs, name.Name()))
	}
	return paths, nil
}
