package csrf

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

const (
	DefaultCookieName = "csrf_token"
	DefaultHeaderName = "X-CSRF-Token"
	DefaultMaxAge     = 7 * 24 * time.Hour
)

// Guard issues the double-submit token cookie and verifies it is echoed on
// state-changing requests.
type Guard struct {
	cookieName string
	headerName string
	formField  string
	maxAge     time.Duration
	path       string
	domain     string
	secure     bool
	generate   func() string
	onError    func(w http.ResponseWriter, r *http.Request, err error)
	cookies    *cookie.Manager
	logger     *slog.Logger
}

// New creates a Guard. The token cookie is readable by scripts, SameSite=Strict,
// valid for seven days and Secure unless configured otherwise.
func New(opts ...Option) *Guard {
	g := &Guard{
		cookieName: DefaultCookieName,
		headerName: DefaultHeaderName,
		formField:  DefaultCookieName,
		maxAge:     DefaultMaxAge,
		path:       "/",
		secure:     true,
		generate:   uuid.NewString,
		onError:    defaultErrorHandler,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.cookies = cookie.New(
		cookie.WithPath(g.path),
		cookie.WithDomain(g.domain),
		cookie.WithMaxAge(int(g.maxAge/time.Second)),
		cookie.WithSecure(g.secure),
		cookie.WithHTTPOnly(false),
		cookie.WithSameSite(http.SameSiteStrictMode),
	)
	return g
}

func (g *Guard) CookieName() string { return g.cookieName }
func (g *Guard) HeaderName() string { return g.headerName }
func (g *Guard) FormField() string { return g.formField }

// Ensure issues a token cookie when the request carries none. The returned
// request holds the token in its context, so code running later in the same
// request sees the token before the browser has stored the cookie.
func (g *Guard) Ensure(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	if token := CurrentToken(r.Context()); token != "" {
		return r, token
	}
	if token, err := g.cookies.Get(r, g.cookieName); err == nil {
		return r.WithContext(WithToken(r.Context(), token)), token
	}
	return g.issue(w, r, "csrf.issued")
}

// Rotate replaces the token unconditionally. Called on logout so a token seen
// by one account is never accepted for the next login from the same browser.
func (g *Guard) Rotate(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	return g.issue(w, r, "csrf.rotated")
}

func (g *Guard) issue(w http.ResponseWriter, r *http.Request, event string) (*http.Request, string) {
	token := g.generate()
	g.cookies.Set(w, g.cookieName, token)
	g.logger.DebugContext(r.Context(), "csrf token issued",
		logger.Component("csrf"),
		logger.Event(event),
	)
	return r.WithContext(WithToken(r.Context(), token)), token
}

// Token returns the token known for r: the one placed in its context by
// Ensure, else the cookie value. Empty when neither exists.
func (g *Guard) Token(r *http.Request) string {
	if token := CurrentToken(r.Context()); token != "" {
		return token
	}
	token, _ := g.cookies.Get(r, g.cookieName)
	return token
}

// Middleware runs Ensure for every request.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, _ = g.Ensure(w, r)
		next.ServeHTTP(w, r)
	})
}

// Verify rejects unsafe requests whose header token does not match the cookie.
// GET, HEAD, OPTIONS and TRACE pass through.
func (g *Guard) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if err := g.Check(r); err != nil {
			g.logger.WarnContext(r.Context(), "csrf check failed",
				logger.Component("csrf"),
				logger.Method(r.Method),
				logger.Error(err),
			)
			g.onError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Check compares the cookie token with the submitted one in constant time.
// The header is read first; plain HTML form posts may carry the token in the
// form field instead.
func (g *Guard) Check(r *http.Request) error {
	cookieToken, err := g.cookies.Get(r, g.cookieName)
	if err != nil {
		return ErrTokenMissing
	}
	submitted := r.Header.Get(g.headerName)
	if submitted == "" && g.formField != "" {
		submitted = r.PostFormValue(g.formField)
	}
	if submitted == "" {
		return ErrTokenMissing
	}
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

// IsSafeMethod reports whether method never carries the CSRF header.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// RequiresToken reports whether an outbound request with method must carry
// the CSRF header. Only GET and HEAD are exempt.
func RequiresToken(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

type contextKey struct{}

// WithToken stores token in ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

// CurrentToken returns the token placed in ctx by Ensure, or "".
func CurrentToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(contextKey{}).(string)
	return token
}
