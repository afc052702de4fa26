//go:build mqdebug

package shmq

import (
	"log/slog"
	"os"
)

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

// SetLogger sets the logger for queue debug traces.
func SetLogger(l *slog.Logger) {
	defaultLogger = l
}

// debug logs segment and control-plane events in mqdebug builds.
func debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}
