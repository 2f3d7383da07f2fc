package monitor

import "time"

// Config holds monitor settings.
type Config struct {
	Interval time.Duration `env:"SESSION_MONITOR_INTERVAL" envDefault:"5m"`
}

func DefaultConfig() Config {
	return Config{Interval: DefaultInterval}
}

// NewFromConfig creates a Monitor from cfg, then applies opts.
func NewFromConfig(cfg Config, check CheckFunc, opts ...Option) *Monitor {
	return New(check, append([]Option{WithInterval(cfg.Interval)}, opts...)...)
}
