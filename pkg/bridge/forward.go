package bridge

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
)

type forwardingTransport struct {
	base       http.RoundTripper
	api        *url.URL
	headerName string
	fixed      *forwarded
}

// ForwardingTransport returns a RoundTripper for outbound requests made while
// serving a browser request. Requests to the browser's own origin or to the
// identity service get the browser's Cookie header when they carry none, and
// unsafe methods get the CSRF header. The browser request is found in the
// outbound request's context, where Middleware put it. Other requests pass
// through untouched. A nil base uses http.DefaultTransport.
func (b *Bridge) ForwardingTransport(base http.RoundTripper) http.RoundTripper {
	return b.forwardingTransport(base, nil)
}

// Forward records the browser's credentials for ForwardingTransport without
// resolving the session, for handlers such as a reverse proxy that only relay.
// It never issues a CSRF cookie. The token from the browser's cookie is
// carried for unsafe methods only when Origin or Referer names this host, so
// a cross-site form cannot borrow it.
func (b *Bridge) Forward(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fwd := &forwarded{
			cookieHeader: cookie.Header(r),
			scheme:       scheme(r),
			host:         r.Host,
		}
		if !csrf.RequiresToken(r.Method) || sameOrigin(r) {
			fwd.csrfToken = b.guard.Token(r)
		}
		next.ServeHTTP(w, r.WithContext(withForwarded(r.Context(), fwd)))
	})
}

// Client returns an http.Client bound to r whose requests are forwarded the
// same way regardless of the context they are sent with.
func (b *Bridge) Client(r *http.Request) *http.Client {
	fwd := forwardedFromContext(r.Context())
	if fwd == nil {
		fwd = &forwarded{
			cookieHeader: cookie.Header(r),
			csrfToken:    b.guard.Token(r),
			scheme:       scheme(r),
			host:         r.Host,
		}
	}
	return &http.Client{Transport: b.forwardingTransport(nil, fwd)}
}

func (b *Bridge) forwardingTransport(base http.RoundTripper, fixed *forwarded) *forwardingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	api, err := url.Parse(b.base.BaseURL())
	if err != nil || api.Host == "" {
		api = nil
	}
	return &forwardingTransport{
		base:       base,
		api:        api,
		headerName: b.guard.HeaderName(),
		fixed:      fixed,
	}
}

func (t *forwardingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fwd := t.fixed
	if fwd == nil {
		fwd = forwardedFromContext(req.Context())
	}
	if fwd == nil || !t.trusted(req.URL, fwd) {
		return t.base.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	if req.Header.Get("Cookie") == "" && fwd.cookieHeader != "" {
		req.Header.Set("Cookie", fwd.cookieHeader)
	}
	if csrf.RequiresToken(req.Method) && req.Header.Get(t.headerName) == "" && fwd.csrfToken != "" {
		req.Header.Set(t.headerName, fwd.csrfToken)
	}
	requestid.Propagate(req.Context(), req.Header)
	return t.base.RoundTrip(req)
}

func (t *forwardingTransport) trusted(u *url.URL, fwd *forwarded) bool {
	if u == nil {
		return false
	}
	if fwd.host != "" && strings.EqualFold(u.Host, fwd.host) && (fwd.scheme == "" || u.Scheme == fwd.scheme) {
		return true
	}
	if t.api == nil {
		return false
	}
	return u.Scheme == t.api.Scheme && strings.EqualFold(u.Host, t.api.Host) &&
		strings.HasPrefix(u.Path, t.api.Path)
}

// sameOrigin reports whether the browser declared r's own origin.
func sameOrigin(r *http.Request) bool {
	raw := r.Header.Get("Origin")
	if raw == "" {
		raw = r.Header.Get("Referer")
	}
	if raw == "" || raw == "null" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Scheme, scheme(r)) && strings.EqualFold(u.Host, r.Host)
}
