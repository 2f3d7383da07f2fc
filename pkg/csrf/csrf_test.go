package csrf_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/environment"
)

func fixedToken(token string) csrf.Option {
	return csrf.WithTokenGenerator(func() string { return token })
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGuard_Ensure(t *testing.T) {
	t.Parallel()

	t.Run("issues token when absent", func(t *testing.T) {
		t.Parallel()
		g := csrf.New(fixedToken("tok-1"))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		req, token := g.Ensure(rec, req)
		assert.Equal(t, "tok-1", token)
		assert.Equal(t, "tok-1", csrf.CurrentToken(req.Context()))
		assert.Equal(t, "tok-1", g.Token(req))

		c := findCookie(t, rec, "csrf_token")
		require.NotNil(t, c)
		assert.Equal(t, "tok-1", c.Value)
		assert.Equal(t, "/", c.Path)
		assert.False(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), c.MaxAge)
	})

	t.Run("keeps existing token", func(t *testing.T) {
		t.Parallel()
		g := csrf.New(fixedToken("new"))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing"})

		req, token := g.Ensure(rec, req)
		assert.Equal(t, "existing", token)
		assert.Equal(t, "existing", csrf.CurrentToken(req.Context()))
		assert.Nil(t, findCookie(t, rec, "csrf_token"))
	})

	t.Run("checked once per request", func(t *testing.T) {
		t.Parallel()
		calls := 0
		g := csrf.New(csrf.WithTokenGenerator(func() string {
			calls++
			return "tok"
		}))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		req, _ = g.Ensure(rec, req)
		_, token := g.Ensure(rec, req)
		assert.Equal(t, "tok", token)
		assert.Equal(t, 1, calls)
	})

	t.Run("development cookies are not secure", func(t *testing.T) {
		t.Parallel()
		g := csrf.New(csrf.WithEnvironment(environment.Development))
		rec := httptest.NewRecorder()
		g.Ensure(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		c := findCookie(t, rec, "csrf_token")
		require.NotNil(t, c)
		assert.False(t, c.Secure)
		_, err := uuid.Parse(c.Value)
		assert.NoError(t, err)
	})
}

func TestGuard_Rotate(t *testing.T) {
	t.Parallel()

	g := csrf.New(fixedToken("rotated"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "old"})

	req, token := g.Rotate(rec, req)
	assert.Equal(t, "rotated", token)
	assert.Equal(t, "rotated", g.Token(req))

	c := findCookie(t, rec, "csrf_token")
	require.NotNil(t, c)
	assert.Equal(t, "rotated", c.Value)
}

func TestGuard_Middleware(t *testing.T) {
	t.Parallel()

	g := csrf.New(fixedToken("mw"))
	var seen string
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = csrf.CurrentToken(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "mw", seen)
	assert.NotNil(t, findCookie(t, rec, "csrf_token"))
}

func TestGuard_Verify(t *testing.T) {
	t.Parallel()

	g := csrf.New()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := g.Verify(ok)

	tests := []struct {
		name   string
		method string
		cookie string
		header string
		want   int
	}{
		{"get passes without token", http.MethodGet, "", "", http.StatusNoContent},
		{"head passes without token", http.MethodHead, "", "", http.StatusNoContent},
		{"post with matching token", http.MethodPost, "abc", "abc", http.StatusNoContent},
		{"delete with matching token", http.MethodDelete, "abc", "abc", http.StatusNoContent},
		{"post without header", http.MethodPost, "abc", "", http.StatusForbidden},
		{"post without cookie", http.MethodPost, "", "abc", http.StatusForbidden},
		{"post with mismatch", http.MethodPost, "abc", "abd", http.StatusForbidden},
		{"put with mismatch", http.MethodPut, "abc", "xyz", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "csrf_token", Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGuard_Check(t *testing.T) {
	t.Parallel()

	g := csrf.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.ErrorIs(t, g.Check(req), csrf.ErrTokenMissing)

	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "a"})
	req.Header.Set("X-CSRF-Token", "b")
	assert.ErrorIs(t, g.Check(req), csrf.ErrTokenMismatch)
}

func TestGuard_CheckFormField(t *testing.T) {
	t.Parallel()

	newReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "abc"})
		return req
	}

	assert.NoError(t, csrf.New().Check(newReq("csrf_token=abc")))
	assert.ErrorIs(t, csrf.New().Check(newReq("csrf_token=abd")), csrf.ErrTokenMismatch)
	assert.NoError(t, csrf.New(csrf.WithFormField("_csrf")).Check(newReq("_csrf=abc")))
	assert.Equal(t, "_csrf", csrf.New(csrf.WithFormField("_csrf")).FormField())
	assert.ErrorIs(t, csrf.New(csrf.WithFormField("")).Check(newReq("csrf_token=abc")), csrf.ErrTokenMissing)
}

func TestGuard_CustomErrorHandler(t *testing.T) {
	t.Parallel()

	var got error
	g := csrf.New(csrf.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	g.Verify(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, got, csrf.ErrTokenMissing)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	cfg := csrf.DefaultConfig()
	cfg.CookieName = "xsrf"
	cfg.Secure = false
	g := csrf.NewFromConfig(cfg, fixedToken("cfg"))
	assert.Equal(t, "xsrf", g.CookieName())
	assert.Equal(t, "X-CSRF-Token", g.HeaderName())

	rec := httptest.NewRecorder()
	g.Ensure(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c := findCookie(t, rec, "xsrf")
	require.NotNil(t, c)
	assert.False(t, c.Secure)
}

func TestRequiresToken(t *testing.T) {
	t.Parallel()

	assert.False(t, csrf.RequiresToken(http.MethodGet))
	assert.False(t, csrf.RequiresToken(http.MethodHead))
	assert.True(t, csrf.RequiresToken(http.MethodPost))
	assert.True(t, csrf.RequiresToken(http.MethodOptions))
	assert.True(t, csrf.IsSafeMethod(http.MethodOptions))
}

func TestJarSource(t *testing.T) {
	t.Parallel()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse("https://id.example.com/")
	require.NoError(t, err)

	src := csrf.JarSource{Jar: jar, URL: u}
	assert.Empty(t, src.Token(context.Background()))

	jar.SetCookies(u, []*http.Cookie{{Name: "csrf_token", Value: "from-jar"}})
	assert.Equal(t, "from-jar", src.Token(context.Background()))

	assert.Empty(t, csrf.JarSource{}.Token(context.Background()))
}

func TestContextSource(t *testing.T) {
	t.Parallel()

	ctx := csrf.WithToken(context.Background(), "ctx-token")
	assert.Equal(t, "ctx-token", csrf.ContextSource{}.Token(ctx))
	assert.Empty(t, csrf.ContextSource{}.Token(context.Background()))
}
