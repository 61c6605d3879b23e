package internal

import (
	"io"
	"log/slog"
)

// Environment names recognized across the service. Anything other than
// development gets production behavior.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// NewLogger builds the service logger: human-readable text in
// development, JSON everywhere else. Unrecognized levels fall back to
// info.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == EnvDevelopment {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
