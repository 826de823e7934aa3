// Package log builds the slog loggers used by the CLI. Output goes to stderr
// (or a file while the editor owns the terminal) so it never mixes with
// command output.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level is shared by every logger built here
var level = new(slog.LevelVar)

// SetVerbose switches between debug and info level
func SetVerbose(verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// GetLevel returns the current log level
func GetLevel() slog.Level {
	return level.Level()
}

// New returns a text logger writing to w
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Stderr returns a text logger on stderr
func Stderr() *slog.Logger {
	return New(os.Stderr)
}

// ToFile returns a logger appending to path. Close the returned file when done.
func ToFile(path string) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f), f, nil
}

// Nop returns a logger that discards everything
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
