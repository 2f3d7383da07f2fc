package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/authstate"
	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/monitor"
	"github.com/dmitrymomot/sessionkit/pkg/transport"
)

var errUsage = errors.New("usage: sessionctl [-base-url URL] [-cookies FILE] [-access-cookie NAME] [-v] login|signup|whoami|watch|logout|oauth-url [flags]")

// session is everything one command needs.
type session struct {
	client       *identity.Client
	store        *authstate.Store
	cookies      *cookieFile
	accessCookie string
	out          io.Writer
	log          *slog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		identityCfg transport.Config
		endpoints   identity.Endpoints
		monitorCfg  monitor.Config
	)
	if err := config.Load(&identityCfg); err != nil {
		return err
	}
	if err := config.Load(&endpoints); err != nil {
		return err
	}
	if err := config.Load(&monitorCfg); err != nil {
		return err
	}

	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baseURL := fs.String("base-url", identityCfg.BaseURL, "identity service URL")
	cookiePath := fs.String("cookies", defaultCookiePath(), "file the session cookies are kept in")
	accessCookie := fs.String("access-cookie", "access_token", "name of the identity service's session cookie")
	verbose := fs.Bool("v", false, "log requests to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}
	identityCfg.BaseURL = *baseURL

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := logger.New(
		logger.WithOutput(stderr),
		logger.WithFormat(logger.FormatText),
		logger.WithLevel(level),
	)

	s, err := newSession(identityCfg, endpoints, monitorCfg, *cookiePath, stdout, log)
	if err != nil {
		return err
	}
	defer func() { _ = s.store.Close() }()
	s.accessCookie = *accessCookie

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "login":
		err = s.login(ctx, cmdArgs)
	case "signup":
		err = s.signup(ctx, cmdArgs)
	case "whoami":
		err = s.whoami(ctx)
	case "watch":
		err = s.watch(ctx)
	case "logout":
		err = s.logout(ctx)
	case "oauth-url":
		err = s.oauthURL(ctx, cmdArgs)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
	if saveErr := s.cookies.save(); saveErr != nil {
		err = errors.Join(err, saveErr)
	}
	return err
}

func newSession(cfg transport.Config, endpoints identity.Endpoints, monitorCfg monitor.Config, cookiePath string, out io.Writer, log *slog.Logger) (*session, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cookies := &cookieFile{path: cookiePath, url: base, jar: jar}
	if err := cookies.load(); err != nil {
		return nil, err
	}

	tc := transport.NewFromConfig(cfg,
		transport.WithCookieJar(jar),
		transport.WithLogger(log),
	)
	client := identity.New(tc,
		identity.WithEndpoints(endpoints),
		identity.WithLogger(log),
	)
	interval := monitorCfg.Interval
	if interval <= 0 {
		interval = monitor.DefaultInterval
	}
	store := authstate.New(client,
		authstate.WithMonitorInterval(interval),
		authstate.WithLogger(log),
	)
	return &session{client: client, store: store, cookies: cookies, out: out, log: log}, nil
}

func (s *session) login(ctx context.Context, args []string) error {
	creds, err := parseCredentials("login", args)
	if err != nil {
		return err
	}
	user, err := s.store.Login(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "signed in as %s <%s>\n", user.DisplayName(), user.Email)
	return nil
}

func (s *session) signup(ctx context.Context, args []string) error {
	creds, err := parseCredentials("signup", args)
	if err != nil {
		return err
	}
	if err := s.client.Signup(ctx, creds); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "account created for %s; sign in with: sessionctl login -email %s\n", creds.Email, creds.Email)
	return nil
}

func (s *session) whoami(ctx context.Context) error {
	printState(s.out, s.store.Init(ctx))
	return nil
}

// watch keeps the session alive with the monitor and prints every change
// until interrupted.
func (s *session) watch(ctx context.Context) error {
	sub := s.store.Subscribe(ctx)
	defer func() { _ = sub.Close() }()

	s.store.Init(ctx)

	var last authstate.Phase
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-sub.Receive():
			if !ok {
				return nil
			}
			if st.Phase == last && st.Phase != authstate.PhaseAuthenticated {
				continue
			}
			last = st.Phase
			printState(s.out, st)
			if err := s.cookies.save(); err != nil {
				s.log.WarnContext(ctx, "saving cookies failed", logger.Error(err))
			}
		}
	}
}

// logout signs out at the identity service and forgets the access cookie
// either way, so an unreachable service cannot leave the session on disk.
func (s *session) logout(ctx context.Context) error {
	s.store.Logout(ctx)
	s.cookies.forget(s.accessCookie)
	fmt.Fprintln(s.out, "signed out")
	return nil
}

func (s *session) oauthURL(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("oauth-url", flag.ContinueOnError)
	provider := fs.String("provider", "google", "OAuth provider name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := s.client.AuthorizationURL(ctx, *provider)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, target)
	return nil
}

func parseCredentials(name string, args []string) (identity.Credentials, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("SESSIONCTL_PASSWORD"), "account password (or SESSIONCTL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return identity.Credentials{}, err
	}
	if *email == "" || *password == "" {
		return identity.Credentials{}, identity.ErrMissingCredentials
	}
	return identity.Credentials{Email: *email, Password: *password}, nil
}

func printState(w io.Writer, st authstate.State) {
	switch st.Phase {
	case authstate.PhaseAuthenticated:
		fmt.Fprintf(w, "%s signed in as %s <%s>\n",
			st.LastCheckedAt.Format(time.TimeOnly), st.User.DisplayName(), st.User.Email)
	case authstate.PhaseUnauthenticated:
		fmt.Fprintln(w, "not signed in")
	default:
		fmt.Fprintln(w, "checking session...")
	}
}

func defaultCookiePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sessionkit", "cookies.json")
}
