// Package logger configures structured logging for the progression engine.
// It wraps log/slog with level parsing, output format selection, and
// domain field helpers so all components log in a uniform shape.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatJSON emits one JSON object per line. Default in production.
	FormatJSON Format = "json"

	// FormatText emits human-readable key=value lines. Handy in development.
	FormatText Format = "text"
)

// Options configures the logger.
type Options struct {
	// Output is where log lines are written. Defaults to os.Stdout.
	Output io.Writer

	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string

	// Format selects JSON or text output.
	Format Format

	// AddSource includes the file:line of the log call.
	AddSource bool
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Output:    os.Stdout,
		Level:     "info",
		Format:    FormatJSON,
		AddSource: false,
	}
}

// ParseLevel parses a string into a slog.Level. Unknown strings map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New creates a configured *slog.Logger.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatText:
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	}

	return slog.New(handler)
}

// Default creates a logger with default options.
func Default() *slog.Logger {
	return New(DefaultOptions())
}

// Discard creates a logger that drops everything. Used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Field helpers shared across components.

// Component tags the subsystem emitting the log line.
func Component(name string) slog.Attr { return slog.String("component", name) }

// Operation tags the command or query being executed.
func Operation(name string) slog.Attr { return slog.String("operation", name) }

// UserID tags the aggregate the log line concerns.
func UserID(id string) slog.Attr { return slog.String("user_id", id) }

// XPAmount tags an XP delta.
func XPAmount(xp int) slog.Attr { return slog.Int("xp_amount", xp) }

// Err tags an error, tolerating nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Any("error", nil)
	}
	return slog.String("error", err.Error())
}

// Latency tags an operation duration.
func Latency(d time.Duration) slog.Attr { return slog.Duration("latency", d) }
