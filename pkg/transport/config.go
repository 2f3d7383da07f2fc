package transport

import "time"

// Config points the transport at the identity service.
type Config struct {
	BaseURL   string        `env:"IDENTITY_BASE_URL" envDefault:"http://localhost:8080"`
	Timeout   time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"10s"`
	UserAgent string        `env:"IDENTITY_USER_AGENT" envDefault:"sessionkit/1.0"`
}

// DefaultConfig returns the local development settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:8080",
		Timeout:   10 * time.Second,
		UserAgent: "sessionkit/1.0",
	}
}

// NewFromConfig creates a Client from cfg, then applies opts.
func NewFromConfig(cfg Config, opts ...Option) *Client {
	configOpts := make([]Option, 0, 3+len(opts))
	if cfg.BaseURL != "" {
		configOpts = append(configOpts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		configOpts = append(configOpts, WithTimeout(cfg.Timeout))
	}
	if cfg.UserAgent != "" {
		configOpts = append(configOpts, WithUserAgent(cfg.UserAgent))
	}
	return New(append(configOpts, opts...)...)
}
