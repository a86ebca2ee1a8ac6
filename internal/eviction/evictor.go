package eviction

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
)

// Evictor deletes the oldest entries of a directory, by modification time,
// until its total size is at or under a target.
type Evictor struct {
	// Rescan re-probes the whole directory after every deletion instead of
	// keeping a running total. Files written during the run are then counted.
	Rescan bool

	// Logger receives one line per deletion. Defaults to slog.Default().
	Logger *slog.Logger

	remove func(name string) error
}

// NewEvictor returns an Evictor that keeps a running total.
func NewEvictor() *Evictor {
	return &Evictor{remove: os.Remove}
}

func (ev *Evictor) logger() *slog.Logger {
	if ev.Logger != nil {
		return ev.Logger
	}
	return slog.Default()
}

// Evict removes entries of dir oldest-first until the total size is
// <= maxBytes. Running out of entries is not an error: the returned Result
// has Exhausted set instead. Deletions are not rolled back when a later
// step fails.
func (ev *Evictor) Evict(dir string, maxBytes int64) (Result, error) {
	var res Result

	entries, err := scan(dir)
	if err != nil {
		return res, err
	}
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	res.Before = total
	res.Remaining = total

	// Ties keep enumeration order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.Before(entries[j].ModTime)
	})

	remove := ev.remove
	if remove == nil {
		remove = os.Remove
	}
	log := ev.logger()

	for _, e := range entries {
		outcome := OutcomeDeleted
		if err := remove(e.Path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return res, &Error{Kind: KindDeletionFailure, Op: "remove", Path: e.Path, Err: err}
			}
			outcome = OutcomeAlreadyGone
			log.Warn("File already gone", "path", e.Path, "size", e.Size)
		} else {
			res.Freed += e.Size
			log.Info("Deleted file", "path", e.Path, "size", e.Size, "mtime", e.ModTime)
		}
		res.Deletions = append(res.Deletions, Deletion{Entry: e, Outcome: outcome})

		if ev.Rescan {
			total, err = DirSize(dir)
			if err != nil {
				return res, err
			}
		} else {
			total -= e.Size
		}
		res.Remaining = total

		if total <= maxBytes {
			return res, nil
		}
	}

	res.Exhausted = true
	log.Warn("Directory still over quota after removing every entry", "dir", dir, "remaining", total, "max", maxBytes)
	return res, nil
}
