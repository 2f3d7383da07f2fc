package bridge

import (
	"log/slog"

	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithGuard sets the CSRF guard. The transport reuses its cookie and header names.
func WithGuard(g *csrf.Guard) Option {
	return func(b *Bridge) {
		if g != nil {
			b.guard = g
		}
	}
}

// WithUserCache sets where resolved users are kept between requests.
func WithUserCache(c UserCache) Option {
	return func(b *Bridge) {
		if c != nil {
			b.cache = c
		}
	}
}

func WithEndpoints(e identity.Endpoints) Option {
	return func(b *Bridge) { b.identityOpts = append(b.identityOpts, identity.WithEndpoints(e)) }
}

// WithLoginPath sets where RequireAuth sends anonymous visitors.
func WithLoginPath(path string) Option {
	return func(b *Bridge) { b.loginPath = path }
}

// WithLandingPath sets where signed-in users go when no redirect is requested.
func WithLandingPath(path string) Option {
	return func(b *Bridge) { b.landingPath = path }
}

// WithAccessCookie sets the name of the identity service's access token cookie.
func WithAccessCookie(name string) Option {
	return func(b *Bridge) { b.accessCookie = name }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}
