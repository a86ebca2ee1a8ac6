package eviction

import (
	"os"
	"path/filepath"
)

// DirSize returns the total byte size of the immediate entries of dir.
// Sub-directories are not descended into. A stat failure on any entry,
// including one removed concurrently, aborts the probe.
func DirSize(dir string) (int64, error) {
	entries, err := scan(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total, nil
}

// scan lists dir and stats every entry, in directory enumeration order.
func scan(dir string) ([]Entry, error) {
	names, err := os.ReadDir(dir)
	if err != nil {
		return nil, unreadable("readdir", dir, err)
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name.Name())
		info, err := os.Stat(path)
		if err != nil {
			return nil, unreadable("stat", path, err)
		}
		entries = append(entries, Entry{
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}
