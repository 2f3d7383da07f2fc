package csrf

import (
	"context"
	"net/http"
	"net/url"
)

// JarSource reads the token from a cookie jar. Process-local clients hold the
// jar the identity service's cookies land in, so the token the guard issued is
// found there.
type JarSource struct {
	Jar        http.CookieJar
	URL        *url.URL
	CookieName string
}

func (s JarSource) Token(context.Context) string {
	if s.Jar == nil || s.URL == nil {
		return ""
	}
	name := s.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	for _, c := range s.Jar.Cookies(s.URL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// ContextSource reads the token placed in the request context by Guard.Ensure.
type ContextSource struct{}

func (ContextSource) Token(ctx context.Context) string {
	return CurrentToken(ctx)
}
