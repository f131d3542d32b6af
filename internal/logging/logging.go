// Package logging configures slog for the two services. Both processes
// log text to stderr tagged with a service attribute, so a host running
// the app and the billing service side by side can tell the lines apart.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds the service's root logger, sets it as the default, and
// returns it. Level accepts "debug", "info", "warn" or "error" in any
// case; anything else means info.
func Setup(service, level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
