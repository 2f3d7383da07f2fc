package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// TokenSource yields the CSRF token to echo on unsafe requests, or "".
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) string

func (f TokenSourceFunc) Token(ctx context.Context) string { return f(ctx) }

// CookieSink receives the cookies the identity service sets on any response.
type CookieSink interface {
	SetCookies(ctx context.Context, cookies []*http.Cookie)
}

// CookieSinkFunc adapts a function to CookieSink.
type CookieSinkFunc func(ctx context.Context, cookies []*http.Cookie)

func (f CookieSinkFunc) SetCookies(ctx context.Context, cookies []*http.Cookie) { f(ctx, cookies) }

// Response is a successful call. Body holds the raw JSON document, or nil
// when the response was not JSON.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// Decode unmarshals the response body into T.
func Decode[T any](resp *Response) (T, error) {
	var v T
	if resp == nil || len(resp.Body) == 0 {
		return v, ErrEmptyBody
	}
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return v, errors.Join(ErrInvalidResponse, err)
	}
	return v, nil
}

// Client sends requests to the identity service with the caller's credentials
// attached. Safe for concurrent use.
type Client struct {
	baseURL    string
	custom     *http.Client
	timeout    time.Duration
	jar        http.CookieJar
	hc         *http.Client
	tokens     TokenSource
	sink       CookieSink
	csrfCookie string
	csrfHeader string
	userAgent  string
	logger     *slog.Logger

	forward      bool
	mu           sync.RWMutex
	cookieHeader string
}

func New(opts ...Option) *Client {
	c := &Client{
		timeout:    10 * time.Second,
		csrfCookie: csrf.DefaultCookieName,
		csrfHeader: csrf.DefaultHeaderName,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.build()
	return c
}

func (c *Client) build() {
	hc := c.custom
	if hc == nil {
		hc = &http.Client{Timeout: c.timeout}
	}
	if c.jar != nil && hc.Jar == nil {
		clone := *hc
		clone.Jar = c.jar
		hc = &clone
	}
	c.hc = hc
}

// Fork returns a Client with the same settings and current cookie header,
// then applies opts. The original is not affected.
func (c *Client) Fork(opts ...Option) *Client {
	f := &Client{
		baseURL:      c.baseURL,
		custom:       c.custom,
		timeout:      c.timeout,
		jar:          c.jar,
		tokens:       c.tokens,
		sink:         c.sink,
		csrfCookie:   c.csrfCookie,
		csrfHeader:   c.csrfHeader,
		userAgent:    c.userAgent,
		logger:       c.logger,
		forward:      c.forward,
		cookieHeader: c.CookieHeader(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.build()
	return f
}

// BaseURL returns the identity service origin.
func (c *Client) BaseURL() string { return c.baseURL }

// CookieHeader returns the forwarded Cookie header, including any cookies
// set by responses received so far.
func (c *Client) CookieHeader() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookieHeader
}

// Send performs one request. body is JSON-encoded unless it is nil, []byte or
// json.RawMessage. Entries in header override the defaults. Every failure is a
// *RequestError.
func (c *Client) Send(ctx context.Context, method, endpoint string, body any, header http.Header) (*Response, error) {
	target, err := c.resolve(endpoint)
	if err != nil {
		return nil, &RequestError{Message: "invalid request URL", Err: errors.Join(ErrInvalidRequest, err)}
	}
	payload, err := encodeBody(body)
	if err != nil {
		return nil, &RequestError{Message: "invalid request body", Err: errors.Join(ErrInvalidRequest, err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, &RequestError{Message: "invalid request", Err: errors.Join(ErrInvalidRequest, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, vs := range header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	requestid.Propagate(ctx, req.Header)

	if c.forward && req.Header.Get("Cookie") == "" {
		if h := c.CookieHeader(); h != "" {
			req.Header.Set("Cookie", h)
		}
	}
	if csrf.RequiresToken(method) && req.Header.Get(c.csrfHeader) == "" {
		if token := c.token(ctx, req.URL); token != "" {
			req.Header.Set(c.csrfHeader, token)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "identity request failed",
			logger.Component("transport"),
			logger.Method(method),
			logger.Endpoint(endpoint),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return nil, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, networkError(err)
	}
	c.absorb(ctx, resp.Cookies())

	c.logger.DebugContext(ctx, "identity request",
		logger.Component("transport"),
		logger.Method(method),
		logger.Endpoint(endpoint),
		logger.Status(resp.StatusCode),
		logger.Duration(time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, serverMessage(raw))
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if isJSON(resp.Header.Get("Content-Type")) && len(bytes.TrimSpace(raw)) > 0 {
		if !json.Valid(raw) {
			return nil, &RequestError{
				Message: "invalid JSON response",
				Status:  resp.StatusCode,
				Err:     ErrInvalidResponse,
			}
		}
		out.Body = json.RawMessage(raw)
	}
	return out, nil
}

func (c *Client) resolve(endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		_, err := url.Parse(endpoint)
		return endpoint, err
	}
	if c.baseURL == "" {
		return "", errors.New("base URL is not configured")
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	target := c.baseURL + endpoint
	_, err := url.Parse(target)
	return target, err
}

// token picks the CSRF token: the configured source first, then the forwarded
// cookie header, then the jar.
func (c *Client) token(ctx context.Context, u *url.URL) string {
	if c.tokens != nil {
		return c.tokens.Token(ctx)
	}
	if c.forward {
		v, _ := cookie.Value(c.CookieHeader(), c.csrfCookie)
		return v
	}
	if c.jar != nil {
		return csrf.JarSource{Jar: c.jar, URL: u, CookieName: c.csrfCookie}.Token(ctx)
	}
	return ""
}

func (c *Client) absorb(ctx context.Context, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	if c.forward {
		c.mu.Lock()
		c.cookieHeader = cookie.Merge(c.cookieHeader, cookies)
		c.mu.Unlock()
	}
	if c.sink != nil {
		c.sink.SetCookies(ctx, cookies)
	}
}

func encodeBody(body any) (io.Reader, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return bytes.NewReader(v), nil
	case []byte:
		return bytes.NewReader(v), nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// serverMessage extracts "error" or, failing that, "message" from a JSON
// error body. Anything unparseable yields "".
func serverMessage(raw []byte) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if s, ok := body.Error.(string); ok && s != "" {
		return s
	}
	return body.Message
}
