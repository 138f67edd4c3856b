package zmsg

import "log/slog"

// Logger is the logging interface the framework writes to. Its methods
// take a message plus alternating key-value pairs, so *slog.Logger
// satisfies it directly and the zaplog subpackage provides a zap-backed
// implementation for production use.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger is used when no LoggerOption is supplied.
func defaultLogger() Logger {
	return slog.Default()
}

// NopLogger discards everything. Useful for benchmarks and tests where
// log output is noise.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
