// Package logging builds the slog loggers PhasmaDB components log through.
//
// Components never construct handlers themselves. They accept a
// *slog.Logger and fall back to a discard logger, so a host that does not
// configure logging gets no output at all.
//
// Example Usage:
//
//	logger, err := logging.New("debug", os.Stderr, "json")
//	if err != nil {
//		return err
//	}
//	g := graph.New(graph.WithLogger(logger))
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is a log verbosity as it appears in configuration.
type Level string

const (
	LevelSilent Level = "silent"
	LevelError  Level = "error"
	LevelWarn   Level = "warn"
	LevelInfo   Level = "info"
	LevelDebug  Level = "debug"
)

// ParseLevel parses a configured level. Matching is case-insensitive and the
// empty string means silent.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "silent", "off", "none":
		return LevelSilent, nil
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return "", fmt.Errorf("unknown log level %q (want silent, error, warn, info or debug)", s)
}

// Slog returns the slog level for l. Silent has no slog equivalent and
// reports false.
func (l Level) Slog() (slog.Level, bool) {
	switch l {
	case LevelError:
		return slog.LevelError, true
	case LevelWarn:
		return slog.LevelWarn, true
	case LevelInfo:
		return slog.LevelInfo, true
	case LevelDebug:
		return slog.LevelDebug, true
	}
	return 0, false
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// New builds a logger writing to w at the given level. format is "text"
// (the default) or "json". A nil w writes to stderr.
func New(level string, w io.Writer, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	sl, ok := lvl.Slog()
	if !ok {
		return Discard(), nil
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: sl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
}

// OpenOutput resolves a configured output: "stdout", "stderr" (or empty), or
// a file path opened for append. The returned close func is never nil.
func OpenOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch output {
	case "", "stderr":
		return os.Stderr, noop, nil
	case "stdout":
		return os.Stdout, noop, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open log output: %w", err)
	}
	return f, f.Close, nil
}
