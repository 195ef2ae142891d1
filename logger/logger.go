// Package logger is the logging seam of go-f2x.
//
// Every package logs through the Logger interface with structured key/value pairs, so a game can route
// transport logs into whatever framework it already uses. NewSlog (log/slog, console output when
// ENV=development) and NewZap (go.uber.org/zap) are bundled; MockLogger serves tests.
//
// The package-level functions log through a replaceable default logger, see SetLogger.
package logger

import (
	"fmt"
	"strings"
)

// LogLevel is the severity of a log entry. Lower values are more verbose.
type LogLevel = int8

const (
	// DebugLevel enables frame-level tracing of every header sent and received.
	DebugLevel LogLevel = iota - 1
	// InfoLevel is the default.
	InfoLevel
	// WarnLevel reports recoverable link problems such as faults.
	WarnLevel
	// ErrorLevel reports failures that need attention.
	ErrorLevel
	// FatalLevel logs and exits the process.
	FatalLevel
)

// Logger is implemented by every logging backend.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at FatalLevel and then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)

	// With returns a child logger that adds keyValues to every entry. The parent is not affected.
	With(keyValues ...any) Logger

	// Level returns the minimum enabled level.
	Level() LogLevel
	// SetLevel changes the minimum enabled level.
	SetLevel(level LogLevel)
}

// Enabled reports whether l emits entries at level.
func Enabled(l Logger, level LogLevel) bool {
	return l != nil && l.Level() <= level
}

// ParseLevel converts a level name ("debug", "info", "warn", "error", "fatal") to LogLevel.
// An empty name is InfoLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}
