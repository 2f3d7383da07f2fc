package bridge

import (
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/transport"
)

// Config controls how server-rendered pages see the browser's session.
type Config struct {
	LoginPath     string        `env:"BRIDGE_LOGIN_PATH" envDefault:"/login"`
	LandingPath   string        `env:"BRIDGE_LANDING_PATH" envDefault:"/dashboard"`
	AccessCookie  string        `env:"BRIDGE_ACCESS_COOKIE" envDefault:"access_token"`
	UserCacheTTL  time.Duration `env:"BRIDGE_USER_CACHE_TTL" envDefault:"10s"`
	UserCacheSize int           `env:"BRIDGE_USER_CACHE_SIZE" envDefault:"1024"`
}

func DefaultConfig() Config {
	return Config{
		LoginPath:     DefaultLoginPath,
		LandingPath:   DefaultLandingPath,
		AccessCookie:  DefaultAccessCookie,
		UserCacheTTL:  DefaultUserCacheTTL,
		UserCacheSize: DefaultUserCacheSize,
	}
}

// NewFromConfig creates a Bridge from cfg. Only non-zero values are applied,
// and opts run last so they win over cfg.
func NewFromConfig(cfg Config, base *transport.Client, opts ...Option) *Bridge {
	configOpts := make([]Option, 0, 4+len(opts))
	if cfg.LoginPath != "" {
		configOpts = append(configOpts, WithLoginPath(cfg.LoginPath))
	}
	if cfg.LandingPath != "" {
		configOpts = append(configOpts, WithLandingPath(cfg.LandingPath))
	}
	if cfg.AccessCookie != "" {
		configOpts = append(configOpts, WithAccessCookie(cfg.AccessCookie))
	}
	if cfg.UserCacheTTL > 0 {
		size := cfg.UserCacheSize
		if size <= 0 {
			size = DefaultUserCacheSize
		}
		configOpts = append(configOpts, WithUserCache(NewMemoryUserCache(size, cfg.UserCacheTTL)))
	}
	return New(base, append(configOpts, opts...)...)
}
