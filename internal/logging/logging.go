// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and sink of the logger.
type Options struct {
	Level string
	// File, when set, sends output to a rotating log file instead of Stdout.
	File string
	// Quiet discards output when no file is configured (used by the terminal UI).
	Quiet bool
}

// New returns a JSON logger and a closer for its sink.
func New(opts Options) (*slog.Logger, io.Closer) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.File != "":
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		w, closer = lj, lj
	case opts.Quiet:
		w = io.Discard
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}))
	return logger, closer
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
