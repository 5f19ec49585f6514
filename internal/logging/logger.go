// Package logging is the structured-logging layer of recipebox: a small
// Logger interface, a log/slog backend, and request-scoped attributes that
// travel in the context.
package logging

import "context"

// Logger is a context-aware, structured logger. Attributes attached to the
// context with ContextWith are added to every record.
//
//	log.Info(ctx, "recipe created", "id", r.ID, "deletable", r.Deletable)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key/value pairs.
	With(args ...any) Logger
}

type attrsKey struct{}

// ContextWith returns a copy of ctx carrying extra key/value pairs, e.g. the
// request id set by the HTTP middleware.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev := Attrs(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// Attrs returns the key/value pairs stored in ctx by ContextWith.
func Attrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attrsKey{}).([]any)
	return attrs
}
