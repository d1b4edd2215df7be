package web

import "context"

type callerIDKey struct{}

// WithCallerID adds the caller identity to the context.
func WithCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerIDKey{}, id)
}

// CallerID retrieves the caller identity from the context.
func CallerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerIDKey{}).(string)
	return id, ok
}
