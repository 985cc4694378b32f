// Package log provides a structured logging interface for the paascreen
// pipeline.
//
// This package defines a minimal, slog-compatible logging interface so the
// pipeline stages can emit structured records (stage names, row counts,
// training metrics) without binding to a concrete logging backend. The
// default implementation is backed by Go's log/slog with a JSON handler.

package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// The interface supports contextual loggers through the With method, allowing
// common fields (for example a pipeline stage name) to be pre-populated.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	//
	// Example:
	//
	//	logger.Info("Training completed",
	//	    log.IterationsKey, 87,
	//	    log.ValLossKey, 0.31,
	//	)
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// Pass the error through ErrAttr so the handler can attach a stack trace.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
