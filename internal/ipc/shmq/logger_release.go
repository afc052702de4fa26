//go:build !mqdebug

package shmq

import "log/slog"

// SetLogger sets the logger for queue debug traces. In release builds this
// does nothing, but the signature must match so callers compile either way.
func SetLogger(l *slog.Logger) {}

// debug is a no-op in release builds.
func debug(msg string, args ...any) {}
