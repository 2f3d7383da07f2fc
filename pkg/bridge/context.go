package bridge

import (
	"context"

	"github.com/dmitrymomot/sessionkit/pkg/identity"
)

type userKey struct{}

// WithUser stores the resolved user in ctx.
func WithUser(ctx context.Context, user *identity.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user Middleware resolved for the request, or nil.
func UserFromContext(ctx context.Context) *identity.User {
	if ctx == nil {
		return nil
	}
	user, _ := ctx.Value(userKey{}).(*identity.User)
	return user
}

// forwarded is what outbound requests made while serving a browser request
// need from it.
type forwarded struct {
	cookieHeader string
	csrfToken    string
	scheme       string
	host         string
}

type forwardedKey struct{}

func withForwarded(ctx context.Context, f *forwarded) context.Context {
	return context.WithValue(ctx, forwardedKey{}, f)
}

func forwardedFromContext(ctx context.Context) *forwarded {
	f, _ := ctx.Value(forwardedKey{}).(*forwarded)
	return f
}
