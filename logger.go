package chunkstore

import (
	"context"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with chunkstore-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRank adds a rank field to the logger.
func (l *Logger) WithRank(rank int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank),
	}
}

// LogFlush logs a chunk flush.
func (l *Logger) LogFlush(ctx context.Context, info ChunkInfo, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk flush failed",
			"filename", info.Filename,
			"items", info.ChunkSize,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "chunk flushed",
		"filename", info.Filename,
		"items", info.ChunkSize,
		"size", humanize.Bytes(uint64(info.ChunkBytes)),
		"raw", humanize.Bytes(uint64(info.RawBytes)),
	)
}

// LogDone logs the completion of a writer.
func (l *Logger) LogDone(ctx context.Context, chunks int, items int64, gaps int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "writer done failed",
			"chunks", chunks,
			"error", err,
		)
	case gaps > 0:
		l.WarnContext(ctx, "writer done with gaps in logical indices",
			"chunks", chunks,
			"items", items,
			"out_of_order", gaps,
		)
	default:
		l.InfoContext(ctx, "writer done",
			"chunks", chunks,
			"items", items,
		)
	}
}

// LogMerge logs a fragment merge.
func (l *Logger) LogMerge(ctx context.Context, fragments, chunks int, onDisk int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "merge failed",
			"fragments", fragments,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "merge completed",
		"fragments", fragments,
		"chunks", chunks,
		"size", humanize.Bytes(uint64(onDisk)),
	)
}

// LogCheckpoint logs a checkpoint save.
func (l *Logger) LogCheckpoint(ctx context.Context, name string, chunks int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"chunks", chunks,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "checkpoint saved",
		"filename", name,
		"chunks", chunks,
	)
}

// LogResume logs a writer resumed from a checkpoint.
func (l *Logger) LogResume(ctx context.Context, id uint64, chunks int, next uint64, done bool) {
	l.InfoContext(ctx, "writer resumed",
		"checkpoint", id,
		"chunks", chunks,
		"next_index", next,
		"done", done,
	)
}

// LogRead logs a chunk load on a cache miss.
func (l *Logger) LogRead(ctx context.Context, chunk int, filename string, raw int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "chunk load failed",
			"chunk", chunk,
			"filename", filename,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "chunk loaded",
		"chunk", chunk,
		"filename", filename,
		"raw", humanize.Bytes(uint64(raw)),
	)
}
