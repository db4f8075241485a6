package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLevel maps a level name to its slog level, falling back to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new structured logger with the specified level
func NewLogger(level LogLevel) *slog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a text logger writing to w
func NewLoggerTo(w io.Writer, level LogLevel) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(string(level)),
	})
	return slog.New(handler)
}

// SetupLogging configures the global slog handler based on log level.
// Call it once at startup, before any component grabs slog.Default().
func SetupLogging(logLevel string) {
	slog.SetDefault(NewLogger(LogLevel(logLevel)))
}

// GetLogLevelFromEnv gets the log level from the LOG_LEVEL environment variable
func GetLogLevelFromEnv(defaultLevel LogLevel) LogLevel {
	envLevel := os.Getenv("LOG_LEVEL")
	if envLevel == "" {
		return defaultLevel
	}

	switch strings.ToLower(envLevel) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return defaultLevel
	}
}

// Discard returns a logger that drops every record. Tests use it to keep output quiet.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
