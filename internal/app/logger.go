package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own slog.Logger from the -log-level and
// -log-format flag values. The global default logger is never touched, so
// each App instance (and each harness run in tests) logs in isolation.
func newLogger(level, format string, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}

// parseLevel maps a -log-level value to its slog level. Unknown values fall
// back to info; the CLI rejects them earlier, but direct App embedders may
// pass anything.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
