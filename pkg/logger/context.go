package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// CorrelationIDHeader carries the correlation id over HTTP.
const CorrelationIDHeader = "X-Request-ID"

type correlationIDKey struct{}

// WithCorrelationID stores id in ctx, generating a random one when id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext returns the id stored by WithCorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// CorrelationAttr is the log attribute for ctx's correlation id; empty when there is none.
func CorrelationAttr(ctx context.Context) slog.Attr {
	id := CorrelationIDFromContext(ctx)
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("correlation_id", id)
}
