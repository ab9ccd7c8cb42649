package cyberalchemy

import (
	"context"
	"log/slog"
)

// SlogSystemLogger is a SystemLogger implementation that logs to log/slog.
// It uses the default slog logger, which can be configured globally via slog.SetDefault().
type SlogSystemLogger struct {
	// Attrs are added to every record, e.g. "component", "archive".
	Attrs []interface{}
}

// NewSlogSystemLogger creates a new SystemLogger that logs to log/slog.
//
// Example:
//
//	chat := &cyberalchemy.Chat{
//	    Backend:      client,
//	    SystemLogger: cyberalchemy.NewSlogSystemLogger("component", "chat"),
//	}
func NewSlogSystemLogger(attrs ...interface{}) SystemLogger {
	return SlogSystemLogger{Attrs: attrs}
}

func (s SlogSystemLogger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	slog.DebugContext(ctx, msg, s.with(keysAndValues)...)
}

func (s SlogSystemLogger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	slog.InfoContext(ctx, msg, s.with(keysAndValues)...)
}

func (s SlogSystemLogger) Error(ctx context.Context, msg string, err error, keysAndValues ...interface{}) {
	if err != nil {
		keysAndValues = append(keysAndValues, "error", err)
	}
	slog.ErrorContext(ctx, msg, s.with(keysAndValues)...)
}

func (s SlogSystemLogger) with(keysAndValues []interface{}) []interface{} {
	if len(s.Attrs) == 0 {
		return keysAndValues
	}
	out := make([]interface{}, 0, len(s.Attrs)+len(keysAndValues))
	out = append(out, s.Attrs...)
	return append(out, keysAndValues...)
}

// SilentLogger is a SystemLogger that does nothing.
// Use this when you want to disable all system logging.
type SilentLogger struct{}

// NewSilentLogger creates a SystemLogger that discards all log messages.
func NewSilentLogger() SystemLogger {
	return SilentLogger{}
}

func (s SilentLogger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {}
func (s SilentLogger) Info(ctx context.Context, msg string, keysAndValues ...interface{})  {}
func (s SilentLogger) Error(ctx context.Context, msg string, err error, keysAndValues ...interface{}) {
}

// orSilent returns logger, or a SilentLogger when logger is nil.
func orSilent(logger SystemLogger) SystemLogger {
	if logger == nil {
		return SilentLogger{}
	}
	return logger
}
