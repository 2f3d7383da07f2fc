package bridge_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
)

type headerRecorder struct {
	mu   sync.Mutex
	last map[string]http.Header
}

func (h *headerRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		if h.last == nil {
			h.last = map[string]http.Header{}
		}
		h.last[r.Method+" "+r.URL.Path] = r.Header.Clone()
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (h *headerRecorder) get(key string) http.Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last[key]
}

func send(t *testing.T, client *http.Client, method, url string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader("{}"))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
}

func TestClient_ForwardsOnlyToTrustedOrigins(t *testing.T) {
	t.Parallel()

	_, idSrv := newFake(t)
	b := newBridge(idSrv)

	var originRec, thirdRec headerRecorder
	origin := originRec.server(t)
	third := thirdRec.server(t)

	inbound := httptest.NewRequest(http.MethodGet, origin.URL+"/page", nil)
	inbound.AddCookie(&http.Cookie{Name: "access_token", Value: "at-1"})
	inbound.AddCookie(&http.Cookie{Name: csrf.DefaultCookieName, Value: "known"})
	client := b.Client(inbound)

	send(t, client, http.MethodPost, origin.URL+"/api/items")
	send(t, client, http.MethodGet, origin.URL+"/api/items")
	send(t, client, http.MethodPost, third.URL+"/hook")

	post := originRec.get("POST /api/items")
	require.NotNil(t, post)
	assert.Contains(t, post.Get("Cookie"), "access_token=at-1")
	assert.Equal(t, "known", post.Get(csrf.DefaultHeaderName))

	get := originRec.get("GET /api/items")
	require.NotNil(t, get)
	assert.Contains(t, get.Get("Cookie"), "access_token=at-1")
	assert.Empty(t, get.Get(csrf.DefaultHeaderName))

	hook := thirdRec.get("POST /hook")
	require.NotNil(t, hook)
	assert.Empty(t, hook.Get("Cookie"))
	assert.Empty(t, hook.Get(csrf.DefaultHeaderName))
}

func TestForwardingTransport_UsesRequestContext(t *testing.T) {
	t.Parallel()

	f, idSrv := newFake(t)
	f.on("/api/v1/projects", status(http.StatusNoContent))
	f.on("/api/v1/keep", status(http.StatusNoContent))
	b := newBridge(idSrv)
	client := &http.Client{Transport: b.ForwardingTransport(nil)}

	handler := b.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestid.WithContext(r.Context(), "rid-1")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, idSrv.URL+"/api/v1/projects", nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()

		req, err = http.NewRequestWithContext(ctx, http.MethodPut, idSrv.URL+"/api/v1/keep", nil)
		require.NoError(t, err)
		req.Header.Set("Cookie", "mine=1")
		req.Header.Set(csrf.DefaultHeaderName, "explicit")
		resp, err = client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()

		w.WriteHeader(http.StatusOK)
	}))

	inbound := httptest.NewRequest(http.MethodGet, "http://app.example.com/page", nil)
	inbound.AddCookie(&http.Cookie{Name: csrf.DefaultCookieName, Value: "known"})
	inbound.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	handler.ServeHTTP(httptest.NewRecorder(), inbound)

	projects := f.last("/api/v1/projects")
	require.NotNil(t, projects)
	assert.Contains(t, projects.Header.Get("Cookie"), "theme=dark")
	assert.Equal(t, "known", projects.Header.Get(csrf.DefaultHeaderName))
	assert.Equal(t, "rid-1", projects.Header.Get(requestid.Header))

	keep := f.last("/api/v1/keep")
	require.NotNil(t, keep)
	assert.Equal(t, "mine=1", keep.Header.Get("Cookie"))
	assert.Equal(t, "explicit", keep.Header.Get(csrf.DefaultHeaderName))
}

func TestForwardingTransport_PassesThroughWithoutBrowserRequest(t *testing.T) {
	t.Parallel()

	f, idSrv := newFake(t)
	f.on("/api/v1/projects", status(http.StatusNoContent))
	b := newBridge(idSrv)
	client := &http.Client{Transport: b.ForwardingTransport(nil)}

	send(t, client, http.MethodPost, idSrv.URL+"/api/v1/projects")

	projects := f.last("/api/v1/projects")
	require.NotNil(t, projects)
	assert.Empty(t, projects.Header.Get("Cookie"))
	assert.Empty(t, projects.Header.Get(csrf.DefaultHeaderName))
}

func TestForward(t *testing.T) {
	t.Parallel()

	f, idSrv := newFake(t)
	f.on("/api/v1/projects", status(http.StatusNoContent))
	b := newBridge(idSrv)
	client := &http.Client{Transport: b.ForwardingTransport(nil)}

	handler := b.Forward(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := http.NewRequestWithContext(r.Context(), r.Method, idSrv.URL+"/api/v1/projects", nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name      string
		origin    string
		referer   string
		wantToken string
	}{
		{name: "same origin", origin: "http://app.example.com", wantToken: "known"},
		{name: "same origin referer", referer: "http://app.example.com/login", wantToken: "known"},
		{name: "cross site", origin: "https://evil.example.net"},
		{name: "other scheme", origin: "https://app.example.com"},
		{name: "opaque origin", origin: "null"},
		{name: "no proof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbound := httptest.NewRequest(http.MethodPost, "http://app.example.com/api/v1/projects", nil)
			inbound.AddCookie(&http.Cookie{Name: csrf.DefaultCookieName, Value: "known"})
			inbound.AddCookie(&http.Cookie{Name: "access_token", Value: "at-1"})
			if tt.origin != "" {
				inbound.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				inbound.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, inbound)

			assert.Empty(t, rec.Header().Values("Set-Cookie"), "Forward must not issue cookies")
			got := f.last("/api/v1/projects")
			require.NotNil(t, got)
			assert.Contains(t, got.Header.Get("Cookie"), "access_token=at-1")
			assert.Equal(t, tt.wantToken, got.Header.Get(csrf.DefaultHeaderName))
		})
	}
}
