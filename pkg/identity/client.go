package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/transport"
)

// Doer sends one request to the identity service. *transport.Client implements it.
type Doer interface {
	Send(ctx context.Context, method, endpoint string, body any, header http.Header) (*transport.Response, error)
}

// Client is a stateless facade over the identity service endpoints.
type Client struct {
	doer      Doer
	endpoints Endpoints
	logger    *slog.Logger
	tOpts     []transport.Option
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the identity service paths. Empty fields keep their defaults.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.endpoints = e.withDefaults() }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransportOptions passes extra options to the transport NewForwarded builds.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *Client) { c.tOpts = append(c.tOpts, opts...) }
}

// New creates a Client sending through doer.
func New(doer Doer, opts ...Option) *Client {
	c := &Client{
		doer:      doer,
		endpoints: DefaultEndpoints(),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewForwarded creates a Client for a server acting on behalf of a browser:
// every request carries cookieHeader, the browser's own Cookie header.
func NewForwarded(cfg transport.Config, cookieHeader string, opts ...Option) *Client {
	c := New(nil, opts...)
	tOpts := append([]transport.Option{
		transport.WithCookieHeader(cookieHeader),
		transport.WithLogger(c.logger),
	}, c.tOpts...)
	c.doer = transport.NewFromConfig(cfg, tOpts...)
	return c
}

// Login posts creds and, on success, asks the identity service who is signed
// in rather than trusting the login response.
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}
	resp, err := c.doer.Send(ctx, http.MethodPost, c.endpoints.Login, creds, nil)
	if err != nil {
		return nil, err
	}
	if err := softFailure(resp); err != nil {
		return nil, err
	}

	user := c.EnsureSession(ctx)
	if user == nil {
		return nil, ErrSessionNotEstablished
	}
	c.logger.InfoContext(ctx, "user signed in",
		logger.Component("identity"),
		logger.Event("login"),
		logger.UserID(user.ID),
	)
	return user, nil
}

// Signup registers an account. It does not sign the user in.
func (c *Client) Signup(ctx context.Context, creds Credentials) error {
	if creds.Email == "" || creds.Password == "" {
		return ErrMissingCredentials
	}
	resp, err := c.doer.Send(ctx, http.MethodPost, c.endpoints.Register, creds, nil)
	if err != nil {
		return err
	}
	return softFailure(resp)
}

// Logout asks the identity service to end the session. Failures are logged
// and dropped: local state must be clearable while the service is unreachable.
func (c *Client) Logout(ctx context.Context) {
	if _, err := c.doer.Send(ctx, http.MethodDelete, c.endpoints.Logout, nil, nil); err != nil {
		c.logger.WarnContext(ctx, "logout request failed",
			logger.Component("identity"),
			logger.Event("logout"),
			logger.Status(transport.StatusCode(err)),
			logger.Error(err),
		)
	}
}

// CurrentUser returns the signed-in user, or nil when there is none or the
// request fails for any reason.
func (c *Client) CurrentUser(ctx context.Context) *User {
	resp, err := c.doer.Send(ctx, http.MethodGet, c.endpoints.CurrentUser, nil, nil)
	if err != nil {
		c.logger.DebugContext(ctx, "current user unavailable",
			logger.Component("identity"),
			logger.Status(transport.StatusCode(err)),
			logger.Error(err),
		)
		return nil
	}
	env, err := transport.Decode[currentUserEnvelope](resp)
	if err != nil {
		return nil
	}
	return env.user()
}

// RefreshToken asks the identity service to rotate the access token cookie.
func (c *Client) RefreshToken(ctx context.Context) error {
	_, err := c.doer.Send(ctx, http.MethodGet, c.endpoints.Refresh, nil, nil)
	return err
}

// EnsureSession is the canonical "am I signed in" probe: the current user,
// or after one refresh the current user again. Failures yield nil.
func (c *Client) EnsureSession(ctx context.Context) *User {
	if user := c.CurrentUser(ctx); user != nil {
		return user
	}
	if err := c.RefreshToken(ctx); err != nil {
		c.logger.DebugContext(ctx, "session refresh failed",
			logger.Component("identity"),
			logger.Event("refresh"),
			logger.Status(transport.StatusCode(err)),
			logger.Error(err),
		)
		return nil
	}
	return c.CurrentUser(ctx)
}

// AuthorizationURL returns the provider's consent page URL.
func (c *Client) AuthorizationURL(ctx context.Context, provider string) (string, error) {
	if provider == "" {
		return "", ErrMissingProvider
	}
	resp, err := c.doer.Send(ctx, http.MethodGet, expand(c.endpoints.AuthorizationURL, provider), nil, nil)
	if err != nil {
		return "", err
	}
	env, err := transport.Decode[urlEnvelope](resp)
	if err != nil {
		return "", errors.Join(ErrInvalidResponse, err)
	}
	if _, err := url.ParseRequestURI(env.Data); err != nil {
		return "", errors.Join(ErrInvalidResponse, err)
	}
	return env.Data, nil
}

// HandleCallback hands the provider's code to the identity service, then
// resolves the session. A nil user with a nil error means the exchange was
// accepted but no session could be confirmed.
func (c *Client) HandleCallback(ctx context.Context, provider, code string) (*User, error) {
	if provider == "" {
		return nil, ErrMissingProvider
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingCode
	}
	endpoint := expand(c.endpoints.Callback, provider) + "?" + url.Values{"code": {code}}.Encode()
	resp, err := c.doer.Send(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := softFailure(resp); err != nil {
		return nil, err
	}
	return c.EnsureSession(ctx), nil
}
