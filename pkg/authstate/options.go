package authstate

import (
	"log/slog"
	"time"
)

// Option configures a Store.
type Option func(*Store)

// WithMonitorInterval sets how often an authenticated session is re-validated.
func WithMonitorInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces time.Now for LastCheckedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
