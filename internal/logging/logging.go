// Package logging builds the structured logger used by every command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Options selects where log records go and how they look.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means warn.
	Level string
	// Format is text or json. Empty means text.
	Format string
	// File, when set, receives records instead of the fallback writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", s)
}

// New returns a logger writing to opts.File, or to fallback when no file is
// set. The returned closer releases the file and is never nil.
func New(opts Options, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    = fallback
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		w, err := NewRotatingWriter(opts.File, opts.MaxSizeMB, opts.MaxBackups)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		out, closer = w, w
	}
	if out == nil {
		out = io.Discard
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("invalid log format: %s", opts.Format)
	}
	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
