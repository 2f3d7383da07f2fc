package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// Server runs an http.Server until its context ends or the process receives
// SIGINT or SIGTERM, then drains in-flight requests.
type Server struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	startHooks      []Hook
	stopHooks       []Hook

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	once     sync.Once
}

func New(opts ...Option) *Server {
	s := &Server{
		addr:            ":3000",
		readTimeout:     15 * time.Second,
		writeTimeout:    30 * time.Second,
		idleTimeout:     120 * time.Second,
		shutdownTimeout: 10 * time.Second,
		logger:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the bound address once Run is listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Run serves handler and blocks until shutdown completes. A bind failure is
// returned immediately, wrapped in ErrStart.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, err)
	}
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.srv = srv
	s.listener = ln
	s.mu.Unlock()

	addr := ln.Addr().String()
	s.logger.InfoContext(ctx, "http server started",
		logger.Component("httpserver"),
		slog.String("addr", addr),
	)
	for _, h := range s.startHooks {
		h(ctx, addr)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var runErr error
	select {
	case <-sigCtx.Done():
		if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
			runErr = err
		}
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
			runErr = errors.Join(runErr, serveErr)
		}
	case serveErr := <-errCh:
		if !errors.Is(serveErr, http.ErrServerClosed) {
			runErr = errors.Join(ErrStart, serveErr)
		}
	}
	return runErr
}

// Shutdown stops accepting connections and waits up to the shutdown timeout
// for in-flight requests. Calls after the first are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	var err error
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()

		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
			err = errors.Join(ErrShutdown, shutdownErr)
			s.logger.ErrorContext(ctx, "http server shutdown failed",
				logger.Component("httpserver"),
				logger.Error(shutdownErr),
			)
		} else {
			s.logger.InfoContext(ctx, "http server stopped", logger.Component("httpserver"))
		}
		for _, h := range s.stopHooks {
			h(ctx, s.Addr())
		}
	})
	return err
}
