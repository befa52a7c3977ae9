package rkr

import "log/slog"

// Logger is the interface for structured logging, shaped to match
// *slog.Logger so applications can plug in the standard library logger or
// their own implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger returns the standard library's default slog logger.
func defaultLogger() Logger {
	return slog.Default()
}
