package memdb

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with memdb-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", name),
	}
}

// LogCreate logs table creation.
func (l *Logger) LogCreate(ctx context.Context, capacity, rowWidth int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create failed",
			"capacity", capacity,
			"row_width", rowWidth,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "table created",
			"capacity", capacity,
			"row_width", rowWidth,
		)
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, key string, err error) {
	if err != nil {
		l.WarnContext(ctx, "save failed",
			"key", key,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "save completed",
			"key", key,
		)
	}
}

// LogLoad logs a bulk load.
func (l *Logger) LogLoad(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "load completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.DebugContext(ctx, "load completed",
			"count", count,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, key string, deleted bool) {
	l.DebugContext(ctx, "delete completed",
		"key", key,
		"deleted", deleted,
	)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, keyword string, limit, hits int, message string) {
	l.DebugContext(ctx, "search completed",
		"keyword", keyword,
		"limit", limit,
		"hits", hits,
		"message", message,
	)
}

// LogClear logs a clear operation.
func (l *Logger) LogClear(ctx context.Context, release bool) {
	l.InfoContext(ctx, "table cleared",
		"release", release,
	)
}

// LogDump logs a snapshot dump.
func (l *Logger) LogDump(ctx context.Context, name string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dump failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dump saved",
			"name", name,
			"rows", rows,
		)
	}
}

// LogRestore logs a snapshot restore.
func (l *Logger) LogRestore(ctx context.Context, name string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "restore completed",
			"name", name,
			"rows", rows,
		)
	}
}
