package grainvdb

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with grainvdb-specific fields.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
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

// WithDevice adds a device field to the logger.
func (l *Logger) WithDevice(info DeviceInfo) *Logger {
	return &Logger{
		Logger: l.Logger.With("device", info.String()),
	}
}

// LogOpen logs context creation.
func (l *Logger) LogOpen(ctx context.Context, rank int, kernelPath string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"rank", rank,
			"kernel", kernelPath,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "context opened",
			"rank", rank,
			"kernel", kernelPath,
		)
	}
}

// LogIngest logs an ingest operation.
func (l *Logger) LogIngest(ctx context.Context, count int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "ingest completed",
			"count", count,
			"duration", duration,
		)
	}
}

// LogResolve logs a resolve operation.
func (l *Logger) LogResolve(ctx context.Context, k, hits int, latency time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "resolve failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "resolve completed",
			"k", k,
			"hits", hits,
			"latency", latency,
		)
	}
}

// LogAudit logs an audit operation.
func (l *Logger) LogAudit(ctx context.Context, count int, score float32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "audit failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "audit completed",
			"count", count,
			"score", score,
		)
	}
}

// LogGluingEnergy logs a gluing energy computation between neighbourhoods
// of sizes na and nb.
func (l *Logger) LogGluingEnergy(ctx context.Context, na, nb int, energy float32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "gluing energy failed",
			"a", na,
			"b", nb,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "gluing energy completed",
			"a", na,
			"b", nb,
			"energy", energy,
		)
	}
}

// LogClose logs context teardown.
func (l *Logger) LogClose(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed", "error", err)
	} else {
		l.InfoContext(ctx, "context closed")
	}
}
