package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level  string `doc:"log from debug, info, warn or error"`
	File   string `doc:"append logs to file"`
	Format string `doc:"format logs as text or json"         default:"text"`
	Source bool   `doc:"add the source position to logs"`
}

func level(option string) (slog.Leveler, bool) {
	switch strings.ToLower(option) {
	case "":
		return nil, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return nil, false
	}
}

func handler(option string) (func(io.Writer, *slog.HandlerOptions) slog.Handler, bool) {
	switch strings.ToLower(option) {
	case "json":
		return func(w io.Writer, opts *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, opts) }, true
	case "text":
		return func(w io.Writer, opts *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, opts) }, true
	default:
		return nil, false
	}
}

// output returns nil when logs are to be discarded.
func output(option string) (io.Writer, error) {
	switch option {
	case "", "-":
		return os.Stdout, nil
	case os.DevNull:
		return nil, nil
	default:
		return os.OpenFile(option, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	}
}

// New returns a logger configured by options. Invalid options are reset to
// their default and reported by a warning through the returned logger.
func New(options *Options) *slog.Logger {
	level, ok := level(options.Level)
	if !ok {
		options.Level = ""
		logger := New(options)
		logger.Warn("could not parse logger level")
		return logger
	}
	handler, ok := handler(options.Format)
	if !ok {
		options.Format = "text"
		logger := New(options)
		logger.Warn("could not parse logger format")
		return logger
	}
	opts := slog.HandlerOptions{Level: level, AddSource: options.Source}

	// Opened last: no fallback above may leave a file behind.
	w, err := output(options.File)
	if err != nil {
		options.File = ""
		logger := New(options)
		logger.Warn("could not open logger file", "err", err)
		return logger
	}
	if w == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(handler(w, &opts))
}
