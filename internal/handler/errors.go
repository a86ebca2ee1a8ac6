package handler

import (
	"errors"

	"github.com/lucasew/cachequota/internal/eviction"
)

// ErrorKind is the stable discriminant carried by every 400 response.
type ErrorKind string

const (
	KindInvalidRequest      ErrorKind = "InvalidRequest"
	KindDirectoryUnreadable ErrorKind = "DirectoryUnreadable"
	KindDeletionFailure     ErrorKind = "DeletionFailure"
	KindInternal            ErrorKind = "Internal"
)

// ErrorDetail is the body under the "err" key of a failed response.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
}

type errorResponse struct {
	Err ErrorDetail `json:"err"`
}

func invalidRequest(err error) ErrorDetail {
	return ErrorDetail{Kind: KindInvalidRequest, Message: err.Error()}
}

// classify maps a maintenance or listing failure to its response detail.
func classify(err error) ErrorDetail {
	var e *eviction.Error
	if !errors.As(err, &e) {
		return ErrorDetail{Kind: KindInternal, Message: err.Error()}
	}

	d := ErrorDetail{Op: e.Op, Path: e.Path, Message: e.Err.Error()}
	switch e.Kind {
	case eviction.KindDirectoryUnreadable:
		d.Kind = KindDirectoryUnreadable
	case eviction.KindDeletionFailure, eviction.KindAlreadyGone:
		d.Kind = KindDeletionFailure
	default:
		d.Kind = KindInternal
	}
	return d
}
