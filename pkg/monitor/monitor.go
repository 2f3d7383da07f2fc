package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// DefaultInterval is how often a session is re-validated.
const DefaultInterval = 5 * time.Minute

// CheckFunc re-validates the session. Returning false ends monitoring.
type CheckFunc func(ctx context.Context) bool

// Handle identifies one running monitor loop. Keep it to stop that loop.
type Handle struct {
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	started  time.Time
}

// Stop ends the loop. Safe to call more than once and from inside a check.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.done) })
}

// Done is closed once the loop goroutine has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.exited
}

// Started reports when the loop was started.
func (h *Handle) Started() time.Time {
	return h.started
}

// Monitor runs CheckFunc on a fixed interval. At most one loop runs at a time.
type Monitor struct {
	check    CheckFunc
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	current *Handle
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the check interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(check CheckFunc, opts ...Option) *Monitor {
	m := &Monitor{
		check:    check,
		interval: DefaultInterval,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interval returns the configured check interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Start launches the loop, or returns the running loop's handle. The loop
// also ends when ctx is done.
func (m *Monitor) Start(ctx context.Context) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current
	}
	h := &Handle{
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		started: time.Now(),
	}
	m.current = h
	go m.run(ctx, h)

	m.logger.DebugContext(ctx, "session monitor started",
		logger.Component("monitor"),
		logger.Duration(m.interval),
	)
	return h
}

// Stop ends the loop identified by h. A nil h stops whichever loop is running.
func (m *Monitor) Stop(h *Handle) {
	m.mu.Lock()
	if h == nil {
		h = m.current
	}
	if h != nil && m.current == h {
		m.current = nil
	}
	m.mu.Unlock()
	h.Stop()
}

// Running reports whether a loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Current returns the running loop's handle, or nil.
func (m *Monitor) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Monitor) run(ctx context.Context, h *Handle) {
	ticker := time.NewTicker(m.interval)
	defer func() {
		ticker.Stop()
		m.release(h)
		close(h.exited)
		m.logger.DebugContext(ctx, "session monitor stopped", logger.Component("monitor"))
	}()

	for {
		select {
		case <-h.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A stop racing the tick wins.
			select {
			case <-h.done:
				return
			default:
			}
			if !m.check(ctx) {
				return
			}
		}
	}
}

func (m *Monitor) release(h *Handle) {
	m.mu.Lock()
	if m.current == h {
		m.current = nil
	}
	m.mu.Unlock()
	h.Stop()
}
