package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/sessionkit/pkg/bridge"
	"github.com/dmitrymomot/sessionkit/pkg/clientip"
	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/environment"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/ratelimiter"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
)

// gateway holds what the router needs once configuration is resolved.
type gateway struct {
	bridge      *bridge.Bridge
	identityURL *url.URL
	endpoints   identity.Endpoints
	loginPath   string
	landingPath string
	providers   []string
	limiter     *ratelimiter.Bucket
	checks      []httpserver.Check
	env         environment.Environment
	log         *slog.Logger
}

func (g *gateway) routes() http.Handler {
	b := g.bridge

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware(),
		middleware.Recoverer,
		environment.Middleware(g.env),
	)
	r.Get("/livez", httpserver.LivenessHandler())
	r.Get("/healthz", httpserver.ReadinessHandler(g.log, 2*time.Second, g.checks...))

	proxy := b.Forward(identityProxy(g.identityURL, b, g.log))
	throttle := ratelimiter.Middleware(g.limiter, ratelimiter.ByClientIP, g.log)
	r.With(throttle).Post(g.endpoints.Login, proxy.ServeHTTP)
	r.With(throttle).Post(g.endpoints.Register, proxy.ServeHTTP)
	r.Handle("/api/*", proxy)
	r.Handle("/oauth/*", proxy)

	r.Group(func(r chi.Router) {
		r.Use(b.Middleware)

		provider := func(r *http.Request) string { return chi.URLParam(r, "provider") }
		r.Get("/auth/{provider}", b.AuthorizeHandler(provider).ServeHTTP)
		r.Get("/auth/{provider}/callback", b.CallbackHandler(provider).ServeHTTP)
		r.With(b.Guard().Verify).Post("/logout", b.LogoutHandler().ServeHTTP)

		r.With(b.RedirectAuthenticated).Get(g.loginPath, g.login)
		r.With(b.RequireAuth).Get(g.landingPath, g.landing)
		r.Get("/session", sessionJSON)
	})
	return r
}

func (g *gateway) login(w http.ResponseWriter, r *http.Request) {
	templ.Handler(loginPage(loginView{
		Endpoint:  g.endpoints.Login,
		CSRFToken: csrf.CurrentToken(r.Context()),
		Providers: g.providers,
	})).ServeHTTP(w, r)
}

func (g *gateway) landing(w http.ResponseWriter, r *http.Request) {
	templ.Handler(landingPage(landingView{
		User:      bridge.UserFromContext(r.Context()),
		CSRFField: g.bridge.Guard().FormField(),
		CSRFToken: csrf.CurrentToken(r.Context()),
	})).ServeHTTP(w, r)
}

// identityProxy forwards API calls to the identity service so the browser
// talks to a single origin and the service's cookies land on it. Mount it
// behind Bridge.Forward so unsafe calls carry the CSRF header.
func identityProxy(target *url.URL, b *bridge.Bridge, log *slog.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: b.ForwardingTransport(nil),
		ModifyResponse: func(resp *http.Response) error {
			// Cookies scoped to the identity service's domain would be
			// rejected by the browser on this origin.
			cookies := resp.Cookies()
			if len(cookies) == 0 {
				return nil
			}
			resp.Header.Del("Set-Cookie")
			for _, c := range cookies {
				c.Domain = ""
				resp.Header.Add("Set-Cookie", c.String())
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.ErrorContext(r.Context(), "identity proxy failed",
				logger.Component("gateway"),
				logger.Method(r.Method),
				logger.Endpoint(r.URL.Path),
				logger.Error(err),
			)
			status := http.StatusBadGateway
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			http.Error(w, http.StatusText(status), status)
		},
	}
}

// sessionJSON tells page scripts who is signed in without a second round trip
// to the identity service.
func sessionJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	user := bridge.UserFromContext(r.Context())
	if user == nil {
		_, _ = w.Write([]byte(`{"user":null}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"user": user})
}
