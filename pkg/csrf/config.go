package csrf

import "time"

// Config holds the double-submit cookie settings.
type Config struct {
	CookieName string        `env:"CSRF_COOKIE_NAME" envDefault:"csrf_token"`
	HeaderName string        `env:"CSRF_HEADER_NAME" envDefault:"X-CSRF-Token"`
	MaxAge     time.Duration `env:"CSRF_MAX_AGE" envDefault:"168h"`
	Path       string        `env:"CSRF_COOKIE_PATH" envDefault:"/"`
	Domain     string        `env:"CSRF_COOKIE_DOMAIN" envDefault:""`
	Secure     bool          `env:"CSRF_SECURE" envDefault:"true"`
}

// DefaultConfig returns the settings the identity service expects.
func DefaultConfig() Config {
	return Config{
		CookieName: DefaultCookieName,
		HeaderName: DefaultHeaderName,
		MaxAge:     DefaultMaxAge,
		Path:       "/",
		Secure:     true,
	}
}

// NewFromConfig creates a Guard from cfg. Zero fields fall back to defaults.
func NewFromConfig(cfg Config, opts ...Option) *Guard {
	configOpts := []Option{WithSecure(cfg.Secure)}
	if cfg.CookieName != "" {
		configOpts = append(configOpts, WithCookieName(cfg.CookieName))
	}
	if cfg.HeaderName != "" {
		configOpts = append(configOpts, WithHeaderName(cfg.HeaderName))
	}
	if cfg.MaxAge > 0 {
		configOpts = append(configOpts, WithMaxAge(cfg.MaxAge))
	}
	if cfg.Path != "" {
		configOpts = append(configOpts, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		configOpts = append(configOpts, WithDomain(cfg.Domain))
	}
	return New(append(configOpts, opts...)...)
}
