// Package applog builds the application's structured logger.
//
// The HTTP server logs JSON to stdout. The TUI owns the terminal, so its
// logs go to ~/.autopic/logs/app.log instead.
package applog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects where and how much to log.
type Options struct {
	// Stdout logs to standard output; otherwise to Dir/app.log.
	Stdout bool
	// Dir defaults to ~/.autopic/logs.
	Dir   string
	Level slog.Level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a JSON logger and the closer for its sink. If the log file
// cannot be opened the logger discards output rather than failing startup.
func New(opts Options) (*slog.Logger, io.Closer) {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.Stdout {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts)), nopCloser{}
	}

	dir := opts.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	f, err := openFile(dir)
	if err != nil {
		return slog.New(slog.NewJSONHandler(io.Discard, handlerOpts)), nopCloser{}
	}
	return slog.New(slog.NewJSONHandler(f, handlerOpts)), f
}

// DefaultDir is ~/.autopic/logs, or a temp dir when $HOME is unknown.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "autopic", "logs")
	}
	return filepath.Join(homeDir, ".autopic", "logs")
}

// ParseLevel maps "debug", "info", "warn" and "error"; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func openFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
