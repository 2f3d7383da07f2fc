// Command gateway serves pages on behalf of browsers signed in to the
// identity service and proxies the service's API under the same origin.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"

	"github.com/dmitrymomot/sessionkit/pkg/bridge"
	"github.com/dmitrymomot/sessionkit/pkg/clientip"
	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/csrf"
	"github.com/dmitrymomot/sessionkit/pkg/environment"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/ratelimiter"
	"github.com/dmitrymomot/sessionkit/pkg/redis"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
	"github.com/dmitrymomot/sessionkit/pkg/transport"
)

type appConfig struct {
	Env       string   `env:"APP_ENV" envDefault:"development"`
	Name      string   `env:"APP_NAME" envDefault:"sessionkit-gateway"`
	UserCache string   `env:"BRIDGE_USER_CACHE" envDefault:"memory"`
	Providers []string `env:"GATEWAY_OAUTH_PROVIDERS" envSeparator:"," envDefault:"google"`
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("gateway stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg      appConfig
		identityCfg transport.Config
		endpoints   identity.Endpoints
		csrfCfg     csrf.Config
		bridgeCfg   bridge.Config
		serverCfg   httpserver.Config
		redisCfg    redis.Config
		limitCfg    ratelimiter.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&identityCfg)
	config.MustLoad(&endpoints)
	config.MustLoad(&csrfCfg)
	config.MustLoad(&bridgeCfg)
	config.MustLoad(&serverCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&limitCfg)

	env := environment.Parse(appCfg.Env)
	log := logger.New(
		logger.WithEnvironment(string(env), appCfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	base, err := url.Parse(identityCfg.BaseURL)
	if err != nil || base.Host == "" {
		return fmt.Errorf("invalid IDENTITY_BASE_URL %q: %w", identityCfg.BaseURL, err)
	}

	checks := []httpserver.Check{{Name: "identity", Func: httpserver.DialCheck(hostPort(base))}}
	bridgeOpts := []bridge.Option{
		bridge.WithGuard(csrf.NewFromConfig(csrfCfg, csrf.WithEnvironment(env), csrf.WithLogger(log))),
		bridge.WithEndpoints(endpoints),
		bridge.WithLogger(log),
	}
	if appCfg.UserCache == "redis" {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		bridgeOpts = append(bridgeOpts, bridge.WithUserCache(
			bridge.NewRedisUserCache(client, redisCfg.KeyPrefix+":user", bridgeCfg.UserCacheTTL, log),
		))
		checks = append(checks, httpserver.Check{Name: "redis", Func: redis.Healthcheck(client)})
	}

	limits := ratelimiter.NewMemoryStore()
	defer limits.Close()
	bucket, err := ratelimiter.NewBucket(limits, limitCfg)
	if err != nil {
		return err
	}

	g := &gateway{
		bridge: bridge.NewFromConfig(bridgeCfg,
			transport.NewFromConfig(identityCfg, transport.WithLogger(log)),
			bridgeOpts...,
		),
		identityURL: base,
		endpoints:   endpoints,
		loginPath:   bridgeCfg.LoginPath,
		landingPath: bridgeCfg.LandingPath,
		providers:   appCfg.Providers,
		limiter:     bucket,
		checks:      checks,
		env:         env,
		log:         log,
	}

	srv := httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, g.routes())
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
