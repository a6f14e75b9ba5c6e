package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"trayhop/internal/diaglog"
)

// logLevelEnv selects the stderr log level (debug, info, warn, error).
const logLevelEnv = "TRAYHOP_LOG_LEVEL"

// newAppLogger returns a logger writing text to w whose Warn+ records also
// land in the app's diagnostics ring.
func newAppLogger(a *App, w io.Writer) *slog.Logger {
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevelFromEnv()})
	return slog.New(diaglog.NewTeeHandler(base, slog.LevelWarn, a.recordDiagnostic))
}

func logLevelFromEnv() slog.Level {
	raw := strings.TrimSpace(os.Getenv(logLevelEnv))
	if raw == "" {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// GetDiagnostics returns recent warnings and errors, oldest first.
func (a *App) GetDiagnostics() []diaglog.Entry {
	return a.diagnostics.Snapshot()
}
