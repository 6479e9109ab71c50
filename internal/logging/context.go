package logging

import (
	"context"
	"io"
	"log/slog"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	stepKey
	recipeKey
)

// WithRunID returns a context with the run ID set.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithStep returns a context with the current step label set.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, stepKey, step)
}

// WithRecipe returns a context with the recipe source set.
func WithRecipe(ctx context.Context, recipe string) context.Context {
	return context.WithValue(ctx, recipeKey, recipe)
}

// RunID extracts the run ID from the context, or "" if absent.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// Step extracts the step label from the context, or "" if absent.
func Step(ctx context.Context) string {
	v, _ := ctx.Value(stepKey).(string)
	return v
}

// Recipe extracts the recipe source from the context, or "" if absent.
func Recipe(ctx context.Context) string {
	v, _ := ctx.Value(recipeKey).(string)
	return v
}

// LogWith returns a logger enriched with correlation values from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if v := RunID(ctx); v != "" {
		logger = logger.With(slog.String("run_id", v))
	}
	if v := Step(ctx); v != "" {
		logger = logger.With(slog.String("step", v))
	}
	if v := Recipe(ctx); v != "" {
		logger = logger.With(slog.String("recipe", v))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, injecting the run ID, step and
// recipe from the context into every record logged with a *Context method.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := RunID(ctx); v != "" {
		r.AddAttrs(slog.String("run_id", v))
	}
	if v := Step(ctx); v != "" {
		r.AddAttrs(slog.String("step", v))
	}
	if v := Recipe(ctx); v != "" {
		r.AddAttrs(slog.String("recipe", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}

// NewLogger builds the process logger: text records on w at the given
// level, with correlation values injected.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewCorrelationHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// ParseLevel maps a config string to a slog level, defaulting to warn.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return level
}
