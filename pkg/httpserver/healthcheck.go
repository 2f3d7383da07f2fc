package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// Check is one readiness dependency.
type Check struct {
	Name string
	Func func(context.Context) error
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler always answers 200 while the process serves requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeReport(w, http.StatusOK, healthReport{Status: "alive"})
	}
}

// ReadinessHandler runs every check concurrently, each bounded by timeout,
// and answers 200 when all pass or 503 naming the failures.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report := healthReport{Status: "ready", Checks: make(map[string]string, len(checks))}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, c := range checks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result := "ok"
				if err := c.Func(ctx); err != nil {
					result = "error"
					log.WarnContext(ctx, "readiness check failed",
						logger.Component("httpserver"),
						slog.String("check", c.Name),
						logger.Error(err),
					)
				}
				mu.Lock()
				report.Checks[c.Name] = result
				if result != "ok" {
					report.Status = "not_ready"
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		status := http.StatusOK
		if report.Status != "ready" {
			status = http.StatusServiceUnavailable
		}
		writeReport(w, status, report)
	}
}

// DialCheck reports whether a TCP connection to addr can be opened.
func DialCheck(addr string) func(context.Context) error {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

func writeReport(w http.ResponseWriter, status int, report healthReport) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
