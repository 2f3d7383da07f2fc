package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/transport"
)

const (
	DefaultLoginPath     = "/login"
	DefaultLandingPath   = "/dashboard"
	DefaultAccessCookie  = "access_token"
	DefaultUserCacheTTL  = 10 * time.Second
	DefaultUserCacheSize = 1024
)

// Bridge lets a server rendering pages for a browser act with that browser's
// identity service session.
type Bridge struct {
	base         *transport.Client
	guard        *csrf.Guard
	cache        UserCache
	identityOpts []identity.Option
	loginPath    string
	landingPath  string
	accessCookie string
	logger       *slog.Logger
}

// New creates a Bridge. base supplies the identity service URL and HTTP
// settings; it is forked per request and never carries cookies itself.
func New(base *transport.Client, opts ...Option) *Bridge {
	b := &Bridge{
		guard:        csrf.New(),
		loginPath:    DefaultLoginPath,
		landingPath:  DefaultLandingPath,
		accessCookie: DefaultAccessCookie,
		logger:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cache == nil {
		b.cache = NewMemoryUserCache(DefaultUserCacheSize, DefaultUserCacheTTL)
	}
	if base == nil {
		base = transport.New()
	}
	b.base = base.Fork(transport.WithCSRFNames(b.guard.CookieName(), b.guard.HeaderName()))
	return b
}

// Guard returns the CSRF guard the bridge issues tokens with.
func (b *Bridge) Guard() *csrf.Guard { return b.guard }

// Middleware makes sure the browser holds a CSRF token, then resolves the
// session when the request carries an access token cookie. The user, if any,
// is available to later handlers through UserFromContext. Identity service
// failures leave the request anonymous.
func (b *Bridge) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, token := b.guard.Ensure(w, r)

		fwd := &forwarded{
			cookieHeader: cookie.Merge(cookie.Header(r), []*http.Cookie{{Name: b.guard.CookieName(), Value: token}}),
			csrfToken:    token,
			scheme:       scheme(r),
			host:         r.Host,
		}
		r = r.WithContext(withForwarded(r.Context(), fwd))

		if user := b.resolve(w, r, fwd); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Bridge) resolve(w http.ResponseWriter, r *http.Request, fwd *forwarded) *identity.User {
	token, ok := cookie.Value(fwd.cookieHeader, b.accessCookie)
	if !ok {
		return nil
	}
	ctx := r.Context()
	key := cacheKey(token)
	if user, ok := b.cache.Get(ctx, key); ok {
		return user
	}

	client := b.forward(w, r)
	user := b.identity(client).EnsureSession(ctx)
	// Cookies refreshed during validation apply to the rest of this request.
	fwd.cookieHeader = client.CookieHeader()
	if user == nil {
		b.logger.DebugContext(ctx, "session not resolved",
			logger.Component("bridge"),
			logger.Event("session.anonymous"),
		)
		return nil
	}

	b.cache.Set(ctx, key, user)
	if fresh, ok := cookie.Value(fwd.cookieHeader, b.accessCookie); ok && fresh != token {
		b.cache.Set(ctx, cacheKey(fresh), user)
	}
	return user
}

// RequireAuth sends anonymous visitors to the login page, remembering the
// path they asked for.
func (b *Bridge) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			target := b.loginPath + "?" + url.Values{"redirect": {r.URL.Path}}.Encode()
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectAuthenticated keeps signed-in users off pages meant for anonymous
// visitors, such as the login page. They go to the "redirect" query value
// when it is a local path, else to the landing path.
func (b *Bridge) RedirectAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) != nil {
			http.Redirect(w, r, localPath(r.URL.Query().Get("redirect"), b.landingPath), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LogoutHandler ends the session at the identity service on behalf of the
// browser, relays the cookies it clears, rotates the CSRF token and redirects
// to the login page.
func (b *Bridge) LogoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		client := b.forward(w, r)
		b.identity(client).Logout(ctx)

		for _, header := range []string{cookie.Header(r), b.cookieHeader(r)} {
			if token, ok := cookie.Value(header, b.accessCookie); ok {
				b.cache.Delete(ctx, cacheKey(token))
			}
		}
		http.SetCookie(w, &http.Cookie{Name: b.accessCookie, Path: "/", MaxAge: -1, Expires: time.Unix(0, 0)})
		b.guard.Rotate(w, r)

		b.logger.InfoContext(ctx, "user signed out",
			logger.Component("bridge"),
			logger.Event("logout"),
			logger.UserID(userID(UserFromContext(ctx))),
		)
		http.Redirect(w, r, localPath(r.URL.Query().Get("redirect"), b.loginPath), http.StatusSeeOther)
	})
}

// AuthorizeHandler redirects the browser to the OAuth provider's consent page.
// provider extracts the provider name from the request; nil reads the
// "provider" path value.
func (b *Bridge) AuthorizeHandler(provider func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := providerName(provider, r)
		if name == "" {
			b.fail(w, r, "oauth_failed", ErrMissingProvider)
			return
		}
		target, err := b.identity(b.forward(w, r)).AuthorizationURL(r.Context(), name)
		if err != nil {
			b.fail(w, r, "oauth_unavailable", err)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// CallbackHandler relays the provider's authorization code to the identity
// service, hands the resulting cookies to the browser and sends it to the
// landing path.
func (b *Bridge) CallbackHandler(provider func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := providerName(provider, r)
		if name == "" {
			b.fail(w, r, "oauth_failed", ErrMissingProvider)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" || r.URL.Query().Get("error") != "" {
			b.fail(w, r, "oauth_failed", ErrMissingCode)
			return
		}

		client := b.forward(w, r)
		user, err := b.identity(client).HandleCallback(ctx, name, code)
		if err != nil || user == nil {
			b.fail(w, r, "oauth_failed", err)
			return
		}
		if token, ok := cookie.Value(client.CookieHeader(), b.accessCookie); ok {
			b.cache.Set(ctx, cacheKey(token), user)
		}

		b.logger.InfoContext(ctx, "user signed in",
			logger.Component("bridge"),
			logger.Event("oauth.callback"),
			logger.UserID(user.ID),
		)
		http.Redirect(w, r, b.landingPath, http.StatusFound)
	})
}

func (b *Bridge) fail(w http.ResponseWriter, r *http.Request, reason string, err error) {
	b.logger.WarnContext(r.Context(), "oauth flow failed",
		logger.Component("bridge"),
		logger.Event(reason),
		logger.Error(err),
	)
	http.Redirect(w, r, b.loginPath+"?"+url.Values{"error": {reason}}.Encode(), http.StatusFound)
}

// forward forks the base transport for one browser request: it sends the
// browser's cookies and relays every Set-Cookie back through w.
func (b *Bridge) forward(w http.ResponseWriter, r *http.Request) *transport.Client {
	return b.base.Fork(
		transport.WithCookieHeader(b.cookieHeader(r)),
		transport.WithCookieSink(relay(w)),
	)
}

func (b *Bridge) cookieHeader(r *http.Request) string {
	if fwd := forwardedFromContext(r.Context()); fwd != nil {
		return fwd.cookieHeader
	}
	return cookie.Header(r)
}

func (b *Bridge) identity(doer identity.Doer) *identity.Client {
	opts := append([]identity.Option{identity.WithLogger(b.logger)}, b.identityOpts...)
	return identity.New(doer, opts...)
}

// relay copies identity service cookies onto the browser response. Domain is
// dropped so the cookies belong to the host the browser is talking to.
func relay(w http.ResponseWriter) transport.CookieSink {
	return transport.CookieSinkFunc(func(_ context.Context, cookies []*http.Cookie) {
		for _, c := range cookies {
			if c == nil || c.Name == "" {
				continue
			}
			out := *c
			out.Domain = ""
			http.SetCookie(w, &out)
		}
	})
}

// localPath returns target when it is a path on this site, else fallback.
func localPath(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}

func providerName(fn func(*http.Request) string, r *http.Request) string {
	if fn != nil {
		return strings.TrimSpace(fn(r))
	}
	return strings.TrimSpace(r.PathValue("provider"))
}

func scheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func userID(u *identity.User) any {
	if u == nil {
		return nil
	}
	return u.ID
}
