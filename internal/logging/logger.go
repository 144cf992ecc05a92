// Package logging provides structured logging for aeco-patch-configurator.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects where and how logs are written.
type Options struct {
	Writer  io.Writer // defaults to os.Stderr
	Format  string    // "json" or "text"; anything else is text
	Level   string    // "debug", "info", "warn", "error"
	Verbose bool      // forces debug level and source locations
}

// New creates a logger from opts.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := parseLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{
		Level:     level,
		AddSource: opts.Verbose,
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, hopts)
	default:
		handler = slog.NewTextHandler(w, hopts)
	}
	return slog.New(handler)
}

// NewLogger creates a stderr logger with the given format and level.
func NewLogger(format, level string, verbose bool) *slog.Logger {
	return New(Options{Format: format, Level: level, Verbose: verbose})
}

// NewLoggerWithWriter creates a logger that writes to w.
// Useful for testing.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	return New(Options{Writer: w, Format: format, Level: level})
}

// nopCloser is returned when there is no file to close.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ForMode builds the process logger. A terminal UI owns stderr, so when
// interactive is true and no logFile is given, logs are discarded. When
// logFile is set, logs are appended to it in either mode and the returned
// closer closes the file.
func ForMode(interactive bool, logFile string, opts Options) (*slog.Logger, io.Closer, error) {
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		opts.Writer = f
		return New(opts), f, nil
	case interactive:
		opts.Writer = io.Discard
	}
	return New(opts), nopCloser{}, nil
}

// parseLevel converts a string level to slog.Level.
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

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
