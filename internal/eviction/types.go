package eviction

import "time"

// Entry is a single file observed in a tenant directory.
// It is derived fresh on every maintenance run and never cached.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Outcome describes what happened to an entry picked for eviction.
type Outcome string

const (
	OutcomeDeleted     Outcome = "deleted"
	OutcomeAlreadyGone Outcome = "already_gone"
)

// Deletion records one eviction step.
type Deletion struct {
	Entry
	Outcome Outcome
}

// Result summarizes a maintenance run.
type Result struct {
	RunID     string
	Before    int64
	Remaining int64
	Freed     int64
	Deletions []Deletion
	// Exhausted is set when every entry was removed and the directory was
	// still over the target.
	Exhausted bool
}
