package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Default is the process-wide logger used by the package-level helpers.
	Default *slog.Logger
)

func init() {
	Default = New("info", os.Stdout)
}

// parseLevel maps a level name to a slog level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a JSON-formatted structured logger at the given level.
func New(level string, output io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

// NewText creates a text-formatted logger (useful for development).
func NewText(level string, output io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

// SetDefault sets the default logger for this package and for slog.
func SetDefault(logger *slog.Logger) {
	Default = logger
	slog.SetDefault(logger)
}

// Debug logs a debug message with the default logger.
func Debug(msg string, args ...any) {
	Default.Debug(msg, args...)
}

// Info logs an info message with the default logger.
func Info(msg string, args ...any) {
	Default.Info(msg, args...)
}

// Warn logs a warning message with the default logger.
func Warn(msg string, args ...any) {
	Default.Warn(msg, args...)
}

// Error logs an error message with the default logger.
func Error(msg string, args ...any) {
	Default.Error(msg, args...)
}

// With returns a logger carrying additional attributes.
func With(args ...any) *slog.Logger {
	return Default.With(args...)
}
