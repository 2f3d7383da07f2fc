// Package config loads env-tagged configuration structs with
// github.com/caarlos0/env/v11, reading an optional .env file through
// github.com/joho/godotenv first.
//
// Every sessionkit package exposes its own Config struct (transport.Config,
// csrf.Config, bridge.Config, ...). Commands load them with Load or MustLoad:
//
//	var csrfCfg csrf.Config
//	config.MustLoad(&csrfCfg)
//	guard := csrf.NewFromConfig(csrfCfg)
package config
