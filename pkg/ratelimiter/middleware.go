package ratelimiter

import (
	"hash/fnv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/clientip"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

const maxKeyLength = 64

// KeyFunc extracts the rate limit key from a request. An empty key is not limited.
type KeyFunc func(r *http.Request) string

// ByClientIP keys on the client address clientip.Middleware stored, or the
// one resolved from the request when the middleware did not run.
func ByClientIP(r *http.Request) string {
	if ip := clientip.FromContext(r.Context()); ip != "" {
		return ip
	}
	return clientip.FromRequest(r)
}

// ByPath keys on the request path.
func ByPath(r *http.Request) string {
	return r.URL.Path
}

// Composite joins the non-empty keys of fns with ":". Keys longer than 64
// bytes are hashed with FNV-1a.
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		combined := strings.Join(parts, ":")
		if len(combined) <= maxKeyLength {
			return combined
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(combined))
		return strconv.FormatUint(h.Sum64(), 36)
	}
}

// Middleware denies requests once their key's bucket is empty, answering 429
// with Retry-After. Store failures let the request through.
func Middleware(b *Bucket, key KeyFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := b.Allow(r.Context(), k)
			if err != nil {
				log.ErrorContext(r.Context(), "rate limit check failed",
					logger.Component("ratelimiter"),
					logger.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				retry := int(result.RetryAfter().Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				log.WarnContext(r.Context(), "rate limited",
					logger.Component("ratelimiter"),
					logger.Method(r.Method),
					logger.Endpoint(r.URL.Path),
				)
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
