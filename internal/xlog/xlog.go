// Package xlog centralizes the non-fatal warning logging spec.md §7 calls
// for (empty comment, unknown box after JP2C, TLM inconsistency, unknown
// marker segment): logged and continue, never panic. Uses log/slog, the
// only logging mechanism this corpus's image tooling reaches for
// (jpfielding-dicos.go/cmd/ctl wires slog.SetDefault from a --log-level
// flag); library code here never calls SetDefault itself, it just logs
// through whatever the embedding program configured.
package xlog

import "log/slog"

// Logger returns the process-wide default logger. A thin wrapper exists so
// call sites go through one obvious entry point (xlog.Logger or xlog.Warnf)
// instead of a bare import of log/slog scattered through every file.
func Logger() *slog.Logger {
	return slog.Default()
}

// Warnf logs a structured warning with the given message and key/value
// attributes, matching the attribute style (tile, marker, box) spec.md §7
// expects for non-fatal conditions.
func Warnf(msg string, args ...any) {
	Logger().Warn(msg, args...)
}
