// Package logging configures the process-wide slog logger. Output goes to
// stderr and, when a file is configured, to a size-rotated JSON log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

// Rotation defaults for every log file.
const (
	MaxSizeMB  = 20
	MaxBackups = 5
	MaxAgeDays = 30
)

// Options select the log level and optional rotating file.
type Options struct {
	Level string // debug, info, warn or error; defaults to info
	File  string // empty logs to stderr only
}

// ParseLevel maps a level name onto a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Rotating returns a lumberjack writer for path using the package rotation defaults.
func Rotating(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}
}

// Setup installs the default logger and returns a closer for the log file.
// POST: slog.Default writes text to stderr, and JSON to opts.File when set
func Setup(opts Options) (*slog.Logger, io.Closer) {
	level := ParseLevel(opts.Level)
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		w := Rotating(opts.File)
		handler = fanout{handler, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})}
		closer = w
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer
}

// NewFileLogger returns a JSON logger writing only to a rotated file at path.
// Used for the training sync log.
func NewFileLogger(path string) (*slog.Logger, io.Closer) {
	w := Rotating(path)
	return slog.New(slog.NewJSONHandler(w, nil)), w
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
