package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the identity service origin relative endpoints resolve against.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.custom = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCookieJar attaches a jar that receives and replays the identity
// service's cookies. Used by process-local clients.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.jar = jar }
}

// WithCookieHeader forwards an explicit Cookie header on every request.
// Used where the cookies belong to someone else, such as the browser behind
// a server-rendered request. Set-Cookie responses update the header.
func WithCookieHeader(header string) Option {
	return func(c *Client) {
		c.forward = true
		c.cookieHeader = header
	}
}

// WithTokenSource sets where the CSRF token for unsafe methods comes from.
// Without one, a forwarding client reads the token from its Cookie header.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// WithCookieSink receives Set-Cookie values from every response.
func WithCookieSink(sink CookieSink) Option {
	return func(c *Client) { c.sink = sink }
}

// WithCSRFNames overrides the CSRF cookie and header names.
func WithCSRFNames(cookieName, headerName string) Option {
	return func(c *Client) {
		if cookieName != "" {
			c.csrfCookie = cookieName
		}
		if headerName != "" {
			c.csrfHeader = headerName
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
