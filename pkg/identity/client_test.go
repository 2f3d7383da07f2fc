package identity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/transport"
)

// fakeIdentity is a scripted identity service. Each handler sees the call
// number (starting at 1) for its path.
type fakeIdentity struct {
	mu       sync.Mutex
	calls    map[string]int
	cookies  map[string][]string
	handlers map[string]func(w http.ResponseWriter, r *http.Request, n int)
}

func newFake(t *testing.T) (*fakeIdentity, *httptest.Server) {
	t.Helper()
	f := &fakeIdentity{
		calls:    map[string]int{},
		cookies:  map[string][]string{},
		handlers: map[string]func(http.ResponseWriter, *http.Request, int){},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeIdentity) on(path string, h func(w http.ResponseWriter, r *http.Request, n int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeIdentity) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeIdentity) cookieHeaders(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cookies[path]...)
}

func (f *fakeIdentity) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	n := f.calls[r.URL.Path]
	f.cookies[r.URL.Path] = append(f.cookies[r.URL.Path], r.Header.Get("Cookie"))
	h := f.handlers[r.URL.Path]
	f.mu.Unlock()
	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r, n)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func status(code int) func(http.ResponseWriter, *http.Request, int) {
	return func(w http.ResponseWriter, _ *http.Request, _ int) { w.WriteHeader(code) }
}

var testUser = identity.User{
	ID:       uuid.MustParse("6f1c7f0e-9b7a-4c1e-8f55-2a8b0b1f2c3d"),
	Email:    "a@b.com",
	Fullname: "Ada B",
	IsActive: true,
}

func userOK(w http.ResponseWriter, _ *http.Request, _ int) {
	writeJSON(w, http.StatusOK, map[string]any{"data": testUser})
}

const (
	pathLogin    = "/oauth/email/login"
	pathRegister = "/oauth/email/register"
	pathLogout   = "/api/v1/auth/logout"
	pathMe       = "/api/v1/auth/current-user"
	pathRefresh  = "/oauth/refresh-token"
)

func newClient(srv *httptest.Server) *identity.Client {
	return identity.New(transport.New(transport.WithBaseURL(srv.URL)))
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("resolves the canonical user", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathLogin, func(w http.ResponseWriter, r *http.Request, _ int) {
			var creds identity.Credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "a@b.com", creds.Email)
			assert.Equal(t, "x", creds.Password)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": map[string]string{"email": "ignored@b.com"}})
		})
		f.on(pathMe, userOK)

		user, err := newClient(srv).Login(context.Background(), identity.Credentials{Email: "a@b.com", Password: "x"})
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "a@b.com", user.Email)
		assert.Equal(t, testUser.ID, user.ID)
		assert.Equal(t, 1, f.count(pathMe))
	})

	t.Run("soft failure carries server message", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathLogin, func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid email or password"})
		})
		f.on(pathMe, userOK)

		user, err := newClient(srv).Login(context.Background(), identity.Credentials{Email: "a@b.com", Password: "bad"})
		assert.Nil(t, user)
		var authErr *identity.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, "Invalid email or password", authErr.Message)
		assert.ErrorIs(t, err, identity.ErrAuthFailed)
		assert.Equal(t, 0, f.count(pathMe))
	})

	t.Run("transport failure is returned", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathLogin, func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid credentials"})
		})

		_, err := newClient(srv).Login(context.Background(), identity.Credentials{Email: "a@b.com", Password: "x"})
		require.Error(t, err)
		assert.Equal(t, "Invalid credentials", err.Error())
		assert.Equal(t, http.StatusUnauthorized, transport.StatusCode(err))
	})

	t.Run("no session after login", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathLogin, status(http.StatusNoContent))
		f.on(pathMe, status(http.StatusUnauthorized))
		f.on(pathRefresh, status(http.StatusUnauthorized))

		_, err := newClient(srv).Login(context.Background(), identity.Credentials{Email: "a@b.com", Password: "x"})
		assert.ErrorIs(t, err, identity.ErrSessionNotEstablished)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		_, err := newClient(srv).Login(context.Background(), identity.Credentials{Email: "a@b.com"})
		assert.ErrorIs(t, err, identity.ErrMissingCredentials)
		assert.Equal(t, 0, f.count(pathLogin))
	})
}

func TestSignup(t *testing.T) {
	t.Parallel()

	t.Run("success does not sign in", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathRegister, func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusCreated, map[string]any{"success": true})
		})

		require.NoError(t, newClient(srv).Signup(context.Background(), identity.Credentials{Email: "a@b.com", Password: "x"}))
		assert.Equal(t, 0, f.count(pathMe))
	})

	t.Run("conflict with empty body", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathRegister, status(http.StatusConflict))

		err := newClient(srv).Signup(context.Background(), identity.Credentials{Email: "a@b.com", Password: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "An account with this email already exists")
	})

	t.Run("soft failure", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathRegister, func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Password too short"})
		})

		err := newClient(srv).Signup(context.Background(), identity.Credentials{Email: "a@b.com", Password: "x"})
		var authErr *identity.AuthError
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, "Password too short", authErr.Error())
	})
}

func TestLogout_SwallowsFailure(t *testing.T) {
	t.Parallel()

	f, srv := newFake(t)
	f.on(pathLogout, status(http.StatusInternalServerError))

	newClient(srv).Logout(context.Background())
	assert.Equal(t, 1, f.count(pathLogout))

	srv.Close()
	assert.NotPanics(t, func() { newClient(srv).Logout(context.Background()) })
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler func(http.ResponseWriter, *http.Request, int)
		want    *identity.User
	}{
		{"full user", userOK, &testUser},
		{
			name: "reduced variant",
			handler: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "email": "a@b.com"})
			},
			want: &identity.User{Email: "a@b.com"},
		},
		{
			name: "reduced variant not authenticated",
			handler: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			},
		},
		{
			name: "data without email",
			handler: func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": testUser.ID}})
			},
		},
		{"unauthorized", status(http.StatusUnauthorized), nil},
		{"server error", status(http.StatusInternalServerError), nil},
		{"empty body", status(http.StatusNoContent), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, srv := newFake(t)
			f.on(pathMe, tt.handler)

			got := newClient(srv).CurrentUser(context.Background())
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Email, got.Email)
			assert.Equal(t, tt.want.ID, got.ID)
		})
	}
}

func TestRefreshToken_Propagates(t *testing.T) {
	t.Parallel()

	f, srv := newFake(t)
	f.on(pathRefresh, status(http.StatusInternalServerError))

	err := newClient(srv).RefreshToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, transport.StatusCode(err))
}

func TestEnsureSession(t *testing.T) {
	t.Parallel()

	t.Run("current user first", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathMe, userOK)

		require.NotNil(t, newClient(srv).EnsureSession(context.Background()))
		assert.Equal(t, 0, f.count(pathRefresh))
	})

	t.Run("refresh fallback", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathMe, func(w http.ResponseWriter, r *http.Request, n int) {
			if n == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			userOK(w, r, n)
		})
		f.on(pathRefresh, status(http.StatusOK))

		user := newClient(srv).EnsureSession(context.Background())
		require.NotNil(t, user)
		assert.Equal(t, "a@b.com", user.Email)
		assert.Equal(t, 2, f.count(pathMe))
		assert.Equal(t, 1, f.count(pathRefresh))
	})

	t.Run("refresh exhaustion", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathMe, status(http.StatusUnauthorized))
		f.on(pathRefresh, status(http.StatusOK))

		assert.Nil(t, newClient(srv).EnsureSession(context.Background()))
		assert.Equal(t, 2, f.count(pathMe))
		assert.Equal(t, 1, f.count(pathRefresh))
	})

	t.Run("refresh failure", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathMe, status(http.StatusUnauthorized))
		f.on(pathRefresh, status(http.StatusInternalServerError))

		assert.Nil(t, newClient(srv).EnsureSession(context.Background()))
		assert.Equal(t, 1, f.count(pathMe))
		assert.Equal(t, 1, f.count(pathRefresh))
	})

	t.Run("forwarded cookies follow the refresh", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on(pathMe, func(w http.ResponseWriter, r *http.Request, n int) {
			c, err := r.Cookie("access_token")
			if err != nil || c.Value != "fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			userOK(w, r, n)
		})
		f.on(pathRefresh, func(w http.ResponseWriter, _ *http.Request, _ int) {
			http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "fresh", HttpOnly: true})
			w.WriteHeader(http.StatusOK)
		})

		cfg := transport.DefaultConfig()
		cfg.BaseURL = srv.URL
		c := identity.NewForwarded(cfg, "access_token=expired; csrf_token=t")

		user := c.EnsureSession(context.Background())
		require.NotNil(t, user)
		assert.Equal(t, []string{"access_token=expired; csrf_token=t", "access_token=fresh; csrf_token=t"}, f.cookieHeaders(pathMe))
	})
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	f, srv := newFake(t)
	f.on("/oauth/google/get-url", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, map[string]any{"data": "https://accounts.google.com/o/oauth2/auth?client_id=1"})
	})
	f.on("/oauth/github/get-url", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeJSON(w, http.StatusOK, map[string]any{"data": ""})
	})
	c := newClient(srv)

	u, err := c.AuthorizationURL(context.Background(), "google")
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?client_id=1", u)

	_, err = c.AuthorizationURL(context.Background(), "github")
	assert.ErrorIs(t, err, identity.ErrInvalidResponse)

	_, err = c.AuthorizationURL(context.Background(), "")
	assert.ErrorIs(t, err, identity.ErrMissingProvider)
}

func TestHandleCallback(t *testing.T) {
	t.Parallel()

	t.Run("exchanges code then resolves session", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on("/oauth/google/callback", func(w http.ResponseWriter, r *http.Request, _ int) {
			assert.Equal(t, "abc/123", r.URL.Query().Get("code"))
			w.WriteHeader(http.StatusOK)
		})
		f.on(pathMe, userOK)

		user, err := newClient(srv).HandleCallback(context.Background(), "google", "abc/123")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "a@b.com", user.Email)
	})

	t.Run("exchange failure", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on("/oauth/google/callback", func(w http.ResponseWriter, _ *http.Request, _ int) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid code"})
		})

		_, err := newClient(srv).HandleCallback(context.Background(), "google", "bad")
		require.Error(t, err)
		assert.Equal(t, "invalid code", err.Error())
		assert.Equal(t, 0, f.count(pathMe))
	})

	t.Run("no session after exchange", func(t *testing.T) {
		t.Parallel()
		f, srv := newFake(t)
		f.on("/oauth/google/callback", status(http.StatusOK))
		f.on(pathMe, status(http.StatusUnauthorized))
		f.on(pathRefresh, status(http.StatusUnauthorized))

		user, err := newClient(srv).HandleCallback(context.Background(), "google", "abc")
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("missing code", func(t *testing.T) {
		t.Parallel()
		_, srv := newFake(t)
		_, err := newClient(srv).HandleCallback(context.Background(), "google", " ")
		assert.ErrorIs(t, err, identity.ErrMissingCode)
	})
}

func TestWithEndpoints(t *testing.T) {
	t.Parallel()

	f, srv := newFake(t)
	f.on("/v2/me", userOK)

	c := identity.New(
		transport.New(transport.WithBaseURL(srv.URL)),
		identity.WithEndpoints(identity.Endpoints{CurrentUser: "/v2/me"}),
	)
	require.NotNil(t, c.CurrentUser(context.Background()))
	assert.Equal(t, 1, f.count("/v2/me"))
}

func TestUser_DisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada B", testUser.DisplayName())
	assert.Equal(t, "a@b.com", (&identity.User{Email: "a@b.com"}).DisplayName())
	assert.Equal(t, "", (*identity.User)(nil).DisplayName())
}
