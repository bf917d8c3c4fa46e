package ctxlogger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// AppendCtx returns a context carrying the given attrs in addition to any
// attrs already stored by a previous call.
func AppendCtx(parent context.Context, attrs ...slog.Attr) context.Context {
	if existing, ok := parent.Value(ctxKey{}).([]slog.Attr); ok {
		merged := make([]slog.Attr, 0, len(existing)+len(attrs))
		merged = append(merged, existing...)
		merged = append(merged, attrs...)
		return context.WithValue(parent, ctxKey{}, merged)
	}

	return context.WithValue(parent, ctxKey{}, attrs)
}

// ContextHandler decorates a slog.Handler with attrs stored in the context.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}

	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}
