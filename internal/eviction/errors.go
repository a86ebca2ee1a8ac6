package eviction

import (
	"errors"
	"fmt"
)

// Kind discriminates maintenance failures.
type Kind int

const (
	KindDirectoryUnreadable Kind = iota + 1
	KindDeletionFailure
	KindAlreadyGone
)

func (k Kind) String() string {
	switch k {
	case KindDirectoryUnreadable:
		return "DirectoryUnreadable"
	case KindDeletionFailure:
		return "DeletionFailure"
	case KindAlreadyGone:
		return "AlreadyGone"
	default:
		return "Unknown"
	}
}

var (
	// ErrDirectoryUnreadable matches listing and stat failures, including a missing directory.
	ErrDirectoryUnreadable = errors.New("directory unreadable")

	// ErrDeletionFailure matches removal failures other than the entry already being gone.
	ErrDeletionFailure = errors.New("deletion failure")

	// ErrAlreadyGone matches removals of entries that no longer exist.
	ErrAlreadyGone = errors.New("already gone")
)

// Error is returned by the probe, evictor and listing operations.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDirectoryUnreadable:
		return e.Kind == KindDirectoryUnreadable
	case ErrDeletionFailure:
		return e.Kind == KindDeletionFailure
	case ErrAlreadyGone:
		return e.Kind == KindAlreadyGone
	}
	return false
}

func unreadable(op, path string, err error) error {
	return &Error{Kind: KindDirectoryUnreadable, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
