package errutil

import (
	"io"
	"log/slog"
)

// LogMsg logs err at warn level with msg when err is not nil.
func LogMsg(err error, msg string, args ...any) {
	if err != nil {
		slog.Warn(msg, append([]any{"error", err}, args...)...)
	}
}

// ReportError logs an unexpected error at error level.
func ReportError(err error, msg string, args ...any) {
	if err != nil {
		slog.Error(msg, append([]any{"error", err}, args...)...)
	}
}

// Close closes c and logs a failure instead of returning it.
// Meant for deferred closes where nothing useful can be done with the error.
func Close(c io.Closer, msg string, args ...any) {
	if c == nil {
		return
	}
	LogMsg(c.Close(), msg, args...)
}
