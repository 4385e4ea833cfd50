package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/doormanhub/doorman-core/internal/infrastructure/config"
)

// Logger wraps slog.Logger with the hub's defaults: every record
// carries service=doorman and the build version, so log lines from a
// fleet of door controllers stay attributable once aggregated.
//
// Safe for concurrent use; actuation goroutines and HTTP handlers
// share the same instance.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml: JSON
// for a hub shipping logs off-box, text for a developer terminal,
// level-filtered, writing to stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	// Determine output writer
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	// Parse log level
	level := parseLevel(cfg.Level)

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	// Add default fields
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "doorman"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
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

// With returns a new Logger with additional default attributes. Each
// subsystem tags itself once at construction:
//
//	authLogger := logger.With("component", "auth")
//	authLogger.Info("login") // includes component=auth
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates the logger used between process start and config
// load (JSON, info, stdout). Once config.yaml is read, main swaps it
// for a configured one.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
