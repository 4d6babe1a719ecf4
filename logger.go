package engramgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific helpers so operations log
// with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler selects
// a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON records to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithID tags subsequent records with a content id.
func (l *Logger) WithID(id uint64) *Logger {
	return &Logger{Logger: l.Logger.With("id", id)}
}

// WithComponent tags subsequent records with a subsystem name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// LogIngest logs one ingest: the assigned id, input size and the correction
// representation that was selected for it.
func (l *Logger) LogIngest(ctx context.Context, id uint64, size int, kind string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed", "id", id, "bytes", size, "error", err)
		return
	}
	l.DebugContext(ctx, "ingest completed", "id", id, "bytes", size, "correction", kind)
}

// LogExtract logs one extraction.
func (l *Logger) LogExtract(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "extract failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "extract completed", "id", id)
}

// LogQuery logs one query with its completeness indicators.
func (l *Logger) LogQuery(ctx context.Context, k, found, skipped, expansions int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed", "k", k, "error", err)
		return
	}
	if skipped > 0 {
		l.WarnContext(ctx, "query completed partially",
			"k", k, "results", found, "skipped_branches", skipped, "expansions", expansions)
		return
	}
	l.DebugContext(ctx, "query completed", "k", k, "results", found, "expansions", expansions)
}

// LogFlush logs a tree rebuild and snapshot.
func (l *Logger) LogFlush(ctx context.Context, contents int, root uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed", "error", err)
		return
	}
	l.InfoContext(ctx, "flush completed", "contents", contents, "root_node", root)
}

// LogForget logs a content removal.
func (l *Logger) LogForget(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "forget failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "forget completed", "id", id)
}
