package slogutil

import (
	"io"
	"log/slog"

	"upc/internal/config"
)

// LoggerFactory builds the process logger from CLI flags and the logging
// config. The console gets the CLI level; the optional log file gets the
// configured level so a quiet console can still leave a full trace.
type LoggerFactory struct {
	cfg      config.LoggingConfig
	cliLevel slog.Level
	cliSet   bool
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliSet reports whether
// the verbosity was given on the command line.
func NewLoggerFactory(cfg config.LoggingConfig, cliLevel slog.Level, cliSet bool) *LoggerFactory {
	return &LoggerFactory{
		cfg:      cfg,
		cliLevel: cliLevel,
		cliSet:   cliSet,
	}
}

// ConsoleLevel returns the level for console output.
// Precedence: CLI flag > config > warn.
func (f *LoggerFactory) ConsoleLevel() slog.Level {
	if f.cliSet {
		return f.cliLevel
	}
	if f.cfg.Level != "" {
		return LevelFromString(f.cfg.Level)
	}
	return slog.LevelWarn
}

// FileLevel returns the level for the log file.
func (f *LoggerFactory) FileLevel() slog.Level {
	if f.cfg.Level != "" {
		return LevelFromString(f.cfg.Level)
	}
	return slog.LevelInfo
}

// Logger returns a logger writing to console and, when configured, to
// the rotating log file. A file that cannot be opened is reported as an
// error; the console logger is still returned.
func (f *LoggerFactory) Logger(console io.Writer) (*slog.Logger, error) {
	consoleHandler := newFormatHandler(console, f.ConsoleLevel(), f.cfg.Format)
	if f.cfg.File == "" {
		return slog.New(consoleHandler), nil
	}

	w, err := NewRotatingWriter(f.cfg.File, RotationOptions{
		MaxSizeMB:  f.cfg.MaxSizeMB,
		MaxBackups: f.cfg.MaxBackups,
		MaxAgeDays: f.cfg.MaxAgeDays,
		Compress:   f.cfg.Compress,
	})
	if err != nil {
		return slog.New(consoleHandler), err
	}
	f.closers = append(f.closers, w)

	fileHandler := newFormatHandler(w, f.FileLevel(), f.cfg.Format)
	return slog.New(NewTeeHandler(consoleHandler, fileHandler)), nil
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
