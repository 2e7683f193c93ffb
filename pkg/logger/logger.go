package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithRunID tags ctx with the id of the scrape or pipeline run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKey{}, runID)
}

func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(contextKey{}).(string)
	return runID
}

// FromContext returns base, or the default logger when base is nil, tagged
// with the run id carried by ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	logger := base
	if logger == nil {
		logger = slog.Default()
	}
	if runID, ok := ctx.Value(contextKey{}).(string); ok && runID != "" {
		logger = logger.With("run_id", runID)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
