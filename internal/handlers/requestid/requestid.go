package requestid

import (
	"context"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Create a new context carrying the request id
func New(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// Extract the request id from the context, empty if not set
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
