package environment

import (
	"context"
	"strings"
)

// Environment represents application environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse normalizes an environment name, accepting the short aliases
// "dev", "stage" and "prod". Anything unrecognized is Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

// SecureCookies reports whether cookies issued in this environment must carry
// the Secure flag. Only local development runs over plain HTTP.
func (e Environment) SecureCookies() bool {
	return Parse(string(e)) != Development
}

type contextKey struct{}

// WithContext adds environment to context
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext retrieves environment from context
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

// IsProduction checks if the environment from context is production
func IsProduction(ctx context.Context) bool {
	return Parse(string(FromContext(ctx))) == Production
}

// IsDevelopment checks if the environment from context is development.
// An empty context counts as development.
func IsDevelopment(ctx context.Context) bool {
	return Parse(string(FromContext(ctx))) == Development
}
