// Package logging defines the Logger interface used throughout this
// module, a NoopLogger default, and a log/slog-backed implementation
// that callers opt into via SetDefaultLogger.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the logging surface every package in this module depends
// on, rather than a concrete logging library.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// WithContext returns a logger that pulls request-scoped values
	// (a trace ID, say) out of ctx on each call. NoopLogger and the
	// slog-backed logger both ignore ctx and return themselves.
	WithContext(ctx context.Context) Logger

	// WithField returns a logger with key=value attached to every
	// subsequent line it emits.
	WithField(key string, value any) Logger
}

// NoopLogger discards everything. It's the package default until a
// caller installs a real Logger with SetDefaultLogger.
type NoopLogger struct{}

func (l *NoopLogger) Debug(_ string, _ ...any)             {}
func (l *NoopLogger) Info(_ string, _ ...any)               {}
func (l *NoopLogger) Warn(_ string, _ ...any)               {}
func (l *NoopLogger) Error(_ string, _ ...any)              {}
func (l *NoopLogger) WithContext(_ context.Context) Logger  { return l }
func (l *NoopLogger) WithField(_ string, _ any) Logger      { return l }

var noop = &NoopLogger{}

// GetNoopLogger returns the shared no-op logger.
func GetNoopLogger() Logger {
	return noop
}

// slogLogger adapts log/slog.Logger to the Logger interface, carrying
// accumulated WithField attributes in attrs.
type slogLogger struct {
	base  *slog.Logger
	attrs []any
}

// NewSlogLogger wraps handler (or a text handler on os.Stderr at level
// if handler is nil) as a Logger.
func NewSlogLogger(handler slog.Handler, level slog.Level) Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return &slogLogger{base: slog.New(handler)}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.base.Debug(msg, append(l.attrs, args...)...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.base.Info(msg, append(l.attrs, args...)...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, append(l.attrs, args...)...) }
func (l *slogLogger) Error(msg string, args ...any) { l.base.Error(msg, append(l.attrs, args...)...) }

func (l *slogLogger) WithContext(_ context.Context) Logger { return l }

func (l *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{base: l.base, attrs: append(append([]any{}, l.attrs...), key, value)}
}

var defaultLogger Logger = GetNoopLogger()

// SetDefaultLogger installs logger as the source GetLogger derives
// component loggers from. Passing nil is a no-op; the CLI entrypoint
// calls this once at startup with a slogLogger, everything else keeps
// the NoopLogger default (e.g. in tests that never call it).
func SetDefaultLogger(logger Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// GetLogger returns a child of the default logger tagged with
// component=name.
func GetLogger(name string) Logger {
	return defaultLogger.WithField("component", name)
}
