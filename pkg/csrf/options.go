package csrf

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/environment"
)

// Option configures a Guard.
type Option func(*Guard)

func WithCookieName(name string) Option {
	return func(g *Guard) { g.cookieName = name }
}

func WithHeaderName(name string) Option {
	return func(g *Guard) { g.headerName = name }
}

// WithFormField sets the form field Check falls back to when the header is
// absent. Empty disables the fallback.
func WithFormField(name string) Option {
	return func(g *Guard) { g.formField = name }
}

func WithMaxAge(d time.Duration) Option {
	return func(g *Guard) { g.maxAge = d }
}

func WithPath(path string) Option {
	return func(g *Guard) { g.path = path }
}

func WithDomain(domain string) Option {
	return func(g *Guard) { g.domain = domain }
}

// WithSecure controls the Secure attribute of the token cookie.
func WithSecure(secure bool) Option {
	return func(g *Guard) { g.secure = secure }
}

// WithEnvironment sets the Secure attribute from the deployment environment:
// on everywhere except development.
func WithEnvironment(env environment.Environment) Option {
	return func(g *Guard) { g.secure = env.SecureCookies() }
}

// WithTokenGenerator replaces the UUIDv4 token generator.
func WithTokenGenerator(fn func() string) Option {
	return func(g *Guard) {
		if fn != nil {
			g.generate = fn
		}
	}
}

// WithErrorHandler sets the handler Verify calls on a rejected request.
func WithErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err error)) Option {
	return func(g *Guard) {
		if fn != nil {
			g.onError = fn
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}
