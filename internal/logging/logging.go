// Package logging provides the logger interface used across tree-archiver
// and its slog-backed implementation.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/lumberjack/v2"

	"github.com/raoulx24/tree-archiver/internal/config"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StdLogger writes through the standard library logger. Debug is dropped.
type StdLogger struct{}

func (StdLogger) Debug(string, ...any)          {}
func (StdLogger) Info(msg string, args ...any)  { log.Printf("INFO: "+msg, args...) }
func (StdLogger) Warn(msg string, args ...any)  { log.Printf("WARN: "+msg, args...) }
func (StdLogger) Error(msg string, args ...any) { log.Printf("ERROR: "+msg, args...) }

// Discard drops everything.
type Discard struct{}

func (Discard) Debug(string, ...any) {}
func (Discard) Info(string, ...any)  {}
func (Discard) Warn(string, ...any)  {}
func (Discard) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger to the printf-style Logger.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlog(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, args ...any) { s.l.Debug(fmt.Sprintf(msg, args...)) }
func (s *SlogLogger) Info(msg string, args ...any)  { s.l.Info(fmt.Sprintf(msg, args...)) }
func (s *SlogLogger) Warn(msg string, args ...any)  { s.l.Warn(fmt.Sprintf(msg, args...)) }
func (s *SlogLogger) Error(msg string, args ...any) { s.l.Error(fmt.Sprintf(msg, args...)) }

// New builds the application logger from config. When a file is configured
// output goes to stderr and to a size-rotated file; the returned closer
// releases the file.
func New(cfg config.LoggingConfig) (*SlogLogger, io.Closer, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, errors.NotValidf("log level %q", cfg.Level)
		}
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		_ = closer.Close()
		return nil, nil, errors.NotValidf("log format %q", cfg.Format)
	}

	return NewSlog(slog.New(h)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
