package requestid_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{"generates when missing", "", false},
		{"reuses valid id", "test-request-id-123", true},
		{"reuses uuid", "550e8400-e29b-41d4-a716-446655440000", true},
		{"replaces id with spaces", "test request id", false},
		{"replaces id with markup", "test<script>alert(1)</script>", false},
		{"replaces overlong id", strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			handler := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = requestid.FromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set(requestid.Header, tt.inbound)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNoContent, rec.Code)
			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(requestid.Header))
			if tt.reuse {
				assert.Equal(t, tt.inbound, seen)
			} else {
				assert.NotEqual(t, tt.inbound, seen)
			}
		})
	}
}

func TestPropagate(t *testing.T) {
	t.Parallel()

	t.Run("copies id from context", func(t *testing.T) {
		t.Parallel()
		h := http.Header{}
		requestid.Propagate(requestid.WithContext(context.Background(), "abc"), h)
		assert.Equal(t, "abc", h.Get(requestid.Header))
	})

	t.Run("keeps caller header", func(t *testing.T) {
		t.Parallel()
		h := http.Header{}
		h.Set(requestid.Header, "caller")
		requestid.Propagate(requestid.WithContext(context.Background(), "abc"), h)
		assert.Equal(t, "caller", h.Get(requestid.Header))
	})

	t.Run("no id in context", func(t *testing.T) {
		t.Parallel()
		h := http.Header{}
		requestid.Propagate(context.Background(), h)
		assert.Empty(t, h.Get(requestid.Header))
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-1"), "hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	log.Log(context.Background(), slog.LevelInfo, "no id")
	assert.NotContains(t, buf.String(), "request_id")
}
