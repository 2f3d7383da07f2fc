package cookie

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Manager issues and reads cookies with a shared set of default attributes.
type Manager struct {
	defaults Options
}

func New(opts ...Option) *Manager {
	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{defaults: applyOptions(defaults, opts)}
}

// Set writes a Set-Cookie header. Per-call options override the manager defaults.
func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) {
	options := applyOptions(m.defaults, opts)
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	})
}

// Get returns the value of the named request cookie. Empty values count as missing.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	if c.Value == "" {
		return "", ErrCookieNotFound
	}
	return c.Value, nil
}

// Delete expires the named cookie on the client.
func (m *Manager) Delete(w http.ResponseWriter, name string, opts ...Option) {
	options := applyOptions(m.defaults, opts)
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	})
}

// Header synthesizes a Cookie request header from the cookies the client sent,
// preserving their order. It returns "" when the request carries no cookies.
func Header(r *http.Request) string {
	if r == nil {
		return ""
	}
	return Join(r.Cookies())
}

// Join renders cookies as a Cookie header value ("a=1; b=2").
func Join(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// Parse splits a Cookie header value into cookies.
func Parse(header string) []*http.Cookie {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		// Fall back to the lenient request parser, which skips malformed pairs.
		r := &http.Request{Header: http.Header{"Cookie": {header}}}
		return r.Cookies()
	}
	return cookies
}

// Value returns the value of the named cookie inside a Cookie header value.
func Value(header, name string) (string, bool) {
	for _, c := range Parse(header) {
		if c.Name == name {
			return c.Value, c.Value != ""
		}
	}
	return "", false
}

// Merge applies Set-Cookie updates to a Cookie header value the way a browser
// jar would for a single origin: a cookie with the same name is replaced, an
// expired or emptied cookie is dropped, a new cookie is appended.
func Merge(header string, updates []*http.Cookie) string {
	if len(updates) == 0 {
		return header
	}
	current := Parse(header)
	for _, u := range updates {
		if u == nil || u.Name == "" {
			continue
		}
		expired := u.MaxAge < 0 || u.Value == "" ||
			(!u.Expires.IsZero() && u.Expires.Before(time.Now()))

		idx := -1
		for i, c := range current {
			if c.Name == u.Name {
				idx = i
				break
			}
		}
		switch {
		case idx >= 0 && expired:
			current = append(current[:idx], current[idx+1:]...)
		case idx >= 0:
			current[idx] = &http.Cookie{Name: u.Name, Value: u.Value}
		case !expired:
			current = append(current, &http.Cookie{Name: u.Name, Value: u.Value})
		}
	}
	return Join(current)
}
