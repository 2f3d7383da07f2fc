package requestid

import (
	"context"
	"net/http"
)

type contextKey struct{}

// WithContext stores the request ID in ctx.
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the request ID stored in ctx, or "" when there is none.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(contextKey{}).(string)
	return requestID
}

// Propagate copies the request ID from ctx onto an outbound header set so the
// identity service can correlate its logs with ours. A header already present
// is left untouched.
func Propagate(ctx context.Context, h http.Header) {
	if h == nil || h.Get(Header) != "" {
		return
	}
	if id := FromContext(ctx); id != "" {
		h.Set(Header, id)
	}
}
