package vectra

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vectra-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithCollection adds a collection name field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, name string, dimension, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"collection", name,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"collection", name,
			"dimension", dimension,
			"count", count,
		)
	}
}

// LogFind logs a find operation.
func (l *Logger) LogFind(ctx context.Context, name, metric string, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "find failed",
			"collection", name,
			"metric", metric,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "find completed",
			"collection", name,
			"metric", metric,
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogFlush logs a flush tick.
func (l *Logger) LogFlush(ctx context.Context, err error) {
	if err != nil {
		l.WarnContext(ctx, "flush failed, dirty entries kept for retry",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed")
	}
}

// LogEvict logs the removal of a cached collection.
func (l *Logger) LogEvict(ctx context.Context, name string, dirty bool) {
	if dirty {
		l.WarnContext(ctx, "evicted collection with unflushed writes",
			"collection", name,
		)
	} else {
		l.DebugContext(ctx, "evicted collection",
			"collection", name,
		)
	}
}
