// Package log provides the logging infrastructure for mentora.
//
// It exposes factory functions over log/slog so that components receive
// a configured logger through their constructors instead of reaching for
// globals. Components add context via logger.With("component", ...).
//
// Usage:
//
//	logger := log.New(log.Config{Level: slog.LevelDebug})
//	engine := retrieval.New(cfg, searcher, logger.With("component", "retrieval"))
//
//	// In tests:
//	logger := log.NewNop()
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is a type alias for *slog.Logger. Using the standard library
// type directly keeps full compatibility with the slog ecosystem and
// avoids a custom interface.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries. Default: false
	AddSource bool
}

// New creates a new logger writing to os.Stderr.
//
// Stderr is deliberate: in MCP serving mode stdout carries JSON-RPC
// frames and must stay clean.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a new logger that writes to the given writer.
// Useful for tests that want to inspect output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewDual creates a logger that writes human-readable text to stderr and
// JSON to the given file path, fanned out through slog-multi. Long-running
// serving modes use this so the file stream stays machine-parseable while
// the terminal stays readable.
//
// The returned cleanup closes the log file. If the file cannot be opened
// the logger degrades to stderr-only and cleanup is a no-op.
func NewDual(filePath string, cfg Config) (Logger, func() error, error) {
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	})

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return slog.New(stderrHandler), func() error { return nil },
			fmt.Errorf("opening log file %s: %w", filePath, err)
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	})

	logger := slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
	return logger, file.Close, nil
}

// NewNop creates a logger that discards all output. Test use only;
// production code always gets a configured logger from New.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
