// Package logging builds the process-wide *slog.Logger. Records go to an append-only log file (from configuration or CHANGEREVIEW_LOG_FILE), and with Verbose
// also to stderr. With neither, records are discarded.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// EnvLogFile names the environment variable that sets the log file when Options.File is empty.
const EnvLogFile = "CHANGEREVIEW_LOG_FILE"

// Options control New.
type Options struct {
	Level   slog.Level
	File    string    // log file path; falls back to $CHANGEREVIEW_LOG_FILE
	Verbose bool      // also log to Stderr
	Stderr  io.Writer // defaults to os.Stderr
}

// New returns a logger for opts. It does not open the log file until the first record is written.
func New(opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var writers []io.Writer
	path := opts.File
	if path == "" {
		path = os.Getenv(EnvLogFile)
	}
	if path != "" {
		writers = append(writers, &fileWriter{path: path})
	}
	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	switch len(writers) {
	case 0:
		return slog.New(slog.DiscardHandler)
	case 1:
		return slog.New(slog.NewTextHandler(writers[0], handlerOpts))
	default:
		return slog.New(slog.NewTextHandler(io.MultiWriter(writers...), handlerOpts))
	}
}

// ParseLevel parses "debug", "info", "warn", or "error" (case-insensitive). An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// fileWriter opens, appends to, and closes path on every Write. Writes that fail to open the file are dropped so that logging never fails a review.
type fileWriter struct {
	mu   sync.Mutex
	path string
}

func (w *fileWriter) Write(p []byte) (int, error) {
	// Serialize open/write/close to reduce interleaving within a single process.
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return len(p), nil
	}
	defer f.Close()

	_, _ = f.Write(p)
	return len(p), nil
}
