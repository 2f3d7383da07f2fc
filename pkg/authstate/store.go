package authstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/broadcast"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/monitor"
	"github.com/dmitrymomot/sessionkit/pkg/statemachine"
)

// SessionClient is the part of the identity client the store drives.
// *identity.Client implements it.
type SessionClient interface {
	EnsureSession(ctx context.Context) *identity.User
	Login(ctx context.Context, creds identity.Credentials) (*identity.User, error)
	Logout(ctx context.Context)
}

// Store holds the client-side session state and is the only place it changes.
// Network calls run outside the lock. Every flow that must win over work
// already in flight (Init, Login, Logout, ClearUser) bumps a generation
// counter, and results carrying an older generation are dropped.
type Store struct {
	client   SessionClient
	machine  *statemachine.Machine[Phase, event]
	monitor  *monitor.Monitor
	feed     *broadcast.Feed[State]
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	// monitorCtx bounds the monitor loop to the store's lifetime.
	monitorCtx    context.Context
	cancelMonitor context.CancelFunc

	mu         sync.Mutex
	state      State
	generation uint64
}

// New creates a Store in the Loading phase.
func New(client SessionClient, opts ...Option) *Store {
	s := &Store{
		client:   client,
		interval: monitor.DefaultInterval,
		now:      time.Now,
		logger:   logger.Discard(),
		state:    loadingState(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.machine = statemachine.New(PhaseLoading,
		statemachine.WithTransition[Phase, event](eventBegin, PhaseLoading,
			PhaseLoading, PhaseUnauthenticated, PhaseAuthenticated),
		// A validation result can only land on a pending or live session.
		// Reviving a signed-out store takes a new begin.
		statemachine.WithTransition[Phase, event](eventResolve, PhaseAuthenticated,
			PhaseLoading, PhaseAuthenticated),
		statemachine.WithTransition[Phase, event](eventReject, PhaseUnauthenticated,
			PhaseLoading, PhaseUnauthenticated, PhaseAuthenticated),
		statemachine.WithTransition[Phase, event](eventAssign, PhaseAuthenticated,
			PhaseLoading, PhaseUnauthenticated, PhaseAuthenticated),
		statemachine.WithHook[Phase, event](func(from, to Phase, e event) {
			if from != to {
				s.logger.Debug("session phase changed",
					logger.Component("authstate"),
					logger.Event(string(e)),
					logger.Phase(string(to)),
				)
			}
		}),
	)
	s.feed = broadcast.NewFeed(s.state)
	s.monitorCtx, s.cancelMonitor = context.WithCancel(context.Background())
	s.monitor = monitor.New(s.CheckSession,
		monitor.WithInterval(s.interval),
		monitor.WithLogger(s.logger),
	)
	return s
}

// Init resolves the session at startup: Loading, then Authenticated with the
// monitor running, or Unauthenticated.
func (s *Store) Init(ctx context.Context) State {
	s.mu.Lock()
	gen := s.bump()
	s.transition(eventBegin, nil)
	s.mu.Unlock()

	user := s.client.EnsureSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(ctx, gen, "init") {
		return s.state
	}
	s.settle(user)
	return s.state
}

// Login signs in and returns the canonical user. On failure the store ends
// Unauthenticated and the client's error is returned for display.
func (s *Store) Login(ctx context.Context, creds identity.Credentials) (*identity.User, error) {
	s.mu.Lock()
	gen := s.bump()
	s.transition(eventBegin, nil)
	s.mu.Unlock()

	user, err := s.client.Login(ctx, creds)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(ctx, gen, "login") {
		return nil, ErrSuperseded
	}
	if err != nil {
		s.transition(eventReject, nil)
		s.monitor.Stop(nil)
		return nil, err
	}
	if user == nil {
		s.transition(eventReject, nil)
		s.monitor.Stop(nil)
		return nil, identity.ErrSessionNotEstablished
	}
	if !s.transition(eventResolve, user) {
		return nil, ErrSuperseded
	}
	s.monitor.Start(s.monitorCtx)
	return user, nil
}

// Logout ends the session on the server, best effort, then unconditionally
// stops the monitor and ends Unauthenticated. Results of validations still in
// flight are dropped.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	gen := s.bump()
	s.monitor.Stop(nil)
	s.mu.Unlock()

	s.client.Logout(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(ctx, gen, "logout") {
		return
	}
	// A check that ran while the server call was in flight shares gen and may
	// have restarted the monitor. Retire it along with anything still pending.
	s.bump()
	s.transition(eventReject, nil)
	s.monitor.Stop(nil)
	s.logger.InfoContext(ctx, "signed out", logger.Component("authstate"), logger.Event("logout"))
}

// CheckSession re-validates the session. It is also the monitor's tick.
// Success keeps or enters Authenticated; failure ends Unauthenticated and
// stops the monitor. A result overtaken by a newer flow is dropped.
func (s *Store) CheckSession(ctx context.Context) bool {
	s.mu.Lock()
	gen := s.generation
	if s.state.Phase != PhaseAuthenticated {
		s.transition(eventBegin, nil)
	}
	s.mu.Unlock()

	user := s.client.EnsureSession(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(ctx, gen, "check") {
		// The newer flow owns the monitor from here.
		return true
	}
	return s.settle(user)
}

// SetUser enters Authenticated with user and starts the monitor.
// A nil user is ClearUser.
func (s *Store) SetUser(user *identity.User) {
	if user == nil {
		s.ClearUser()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transition(eventAssign, user) {
		s.monitor.Start(s.monitorCtx)
	}
}

// ClearUser enters Unauthenticated, stops the monitor and drops results of
// validations in flight.
func (s *Store) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bump()
	s.transition(eventReject, nil)
	s.monitor.Stop(nil)
}

// SetLoading(true) enters Loading, which carries no user. SetLoading(false)
// leaves Loading for Unauthenticated and is a no-op in any other phase.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case loading:
		s.transition(eventBegin, nil)
	case s.state.Phase == PhaseLoading:
		s.transition(eventReject, nil)
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) User() *identity.User {
	return s.State().User
}

func (s *Store) IsAuthenticated() bool {
	return s.State().IsAuthenticated
}

func (s *Store) IsLoading() bool {
	return s.State().IsLoading
}

// Monitoring reports whether the background re-validation loop is running.
func (s *Store) Monitoring() bool {
	return s.monitor.Running()
}

// Subscribe streams state snapshots, starting with the current one.
func (s *Store) Subscribe(ctx context.Context) broadcast.Subscriber[State] {
	return s.feed.Subscribe(ctx)
}

// Close stops the monitor and ends every subscription.
func (s *Store) Close() error {
	s.monitor.Stop(nil)
	s.cancelMonitor()
	return s.feed.Close()
}

// settle ends a validation: Authenticated with the monitor running, or
// Unauthenticated with it stopped. It reports whether the session is live.
// Callers hold s.mu.
func (s *Store) settle(user *identity.User) bool {
	if user == nil {
		s.transition(eventReject, nil)
		s.monitor.Stop(nil)
		return false
	}
	if !s.transition(eventResolve, user) {
		return false
	}
	s.monitor.Start(s.monitorCtx)
	return true
}

// transition fires e and replaces the state wholesale. It reports false and
// leaves the state alone when the current phase does not accept e.
// Callers hold s.mu.
func (s *Store) transition(e event, user *identity.User) bool {
	phase, err := s.machine.Fire(e)
	if err != nil {
		s.logger.Debug("session transition rejected",
			logger.Component("authstate"),
			logger.Event(string(e)),
			logger.Phase(string(s.state.Phase)),
			logger.Error(err),
		)
		return false
	}
	switch phase {
	case PhaseAuthenticated:
		s.state = authenticatedState(user, s.now())
	case PhaseLoading:
		s.state = loadingState()
	default:
		s.state = unauthenticatedState()
	}
	s.feed.Publish(s.state)
	return true
}

// bump starts a new generation. Callers hold s.mu.
func (s *Store) bump() uint64 {
	s.generation++
	return s.generation
}

// stale reports whether gen was overtaken. Callers hold s.mu.
func (s *Store) stale(ctx context.Context, gen uint64, flow string) bool {
	if gen == s.generation {
		return false
	}
	s.logger.DebugContext(ctx, "discarding stale session result",
		logger.Component("authstate"),
		logger.Event(flow),
		logger.Generation(gen),
	)
	return true
}
