package httpserver

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Server.
type Option func(*Server)

// Hook runs around the server life cycle. Start hooks run once the listener
// is bound; stop hooks run after shutdown completes.
type Hook func(ctx context.Context, addr string)

func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty addr")
	}
	return func(s *Server) { s.addr = addr }
}

func WithReadTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: read timeout must be positive")
	}
	return func(s *Server) { s.readTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: write timeout must be positive")
	}
	return func(s *Server) { s.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: idle timeout must be positive")
	}
	return func(s *Server) { s.idleTimeout = d }
}

// WithShutdownTimeout bounds how long in-flight requests may take to finish
// once shutdown starts.
func WithShutdownTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: shutdown timeout must be positive")
	}
	return func(s *Server) { s.shutdownTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithStartHook(h Hook) Option {
	if h == nil {
		panic("httpserver: nil start hook")
	}
	return func(s *Server) { s.startHooks = append(s.startHooks, h) }
}

func WithStopHook(h Hook) Option {
	if h == nil {
		panic("httpserver: nil stop hook")
	}
	return func(s *Server) { s.stopHooks = append(s.stopHooks, h) }
}
