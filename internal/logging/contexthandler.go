// Package logging carries request-scoped slog attributes through [context.Context].
package logging

import (
	"context"
	"github.com/myrjola/verdict/internal/errors"
	"log/slog"
)

type ctxKey struct{}

// ContextHandler decorates a [slog.Handler] with the attributes stored by [WithAttrs].
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) ContextHandler {
	return ContextHandler{Handler: h}
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(attrsFrom(ctx)...)
	if err := h.Handler.Handle(ctx, r); err != nil {
		return errors.Wrap(err, "handle log record")
	}
	return nil
}

// WithAttrs and WithGroup keep the decoration on loggers derived with [slog.Logger.With].
func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// WithAttrs returns a child of ctx whose log records handled by [ContextHandler] also carry attrs.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	parent := attrsFrom(ctx)
	// Sibling contexts must never share a backing array.
	merged := make([]slog.Attr, 0, len(parent)+len(attrs))
	merged = append(merged, parent...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func attrsFrom(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	return attrs
}
