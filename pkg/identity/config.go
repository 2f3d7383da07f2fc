package identity

import (
	"net/url"
	"strings"
)

// Endpoints are the identity service paths, relative to the transport's base
// URL. "{provider}" is replaced with the escaped OAuth provider name.
type Endpoints struct {
	Login            string `env:"IDENTITY_LOGIN_PATH" envDefault:"/oauth/email/login"`
	Register         string `env:"IDENTITY_REGISTER_PATH" envDefault:"/oauth/email/register"`
	Logout           string `env:"IDENTITY_LOGOUT_PATH" envDefault:"/api/v1/auth/logout"`
	CurrentUser      string `env:"IDENTITY_CURRENT_USER_PATH" envDefault:"/api/v1/auth/current-user"`
	Refresh          string `env:"IDENTITY_REFRESH_PATH" envDefault:"/oauth/refresh-token"`
	AuthorizationURL string `env:"IDENTITY_OAUTH_URL_PATH" envDefault:"/oauth/{provider}/get-url"`
	Callback         string `env:"IDENTITY_OAUTH_CALLBACK_PATH" envDefault:"/oauth/{provider}/callback"`
}

// DefaultEndpoints returns the paths the identity service serves.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:            "/oauth/email/login",
		Register:         "/oauth/email/register",
		Logout:           "/api/v1/auth/logout",
		CurrentUser:      "/api/v1/auth/current-user",
		Refresh:          "/oauth/refresh-token",
		AuthorizationURL: "/oauth/{provider}/get-url",
		Callback:         "/oauth/{provider}/callback",
	}
}

// withDefaults fills empty paths from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&e.Login, d.Login)
	fill(&e.Register, d.Register)
	fill(&e.Logout, d.Logout)
	fill(&e.CurrentUser, d.CurrentUser)
	fill(&e.Refresh, d.Refresh)
	fill(&e.AuthorizationURL, d.AuthorizationURL)
	fill(&e.Callback, d.Callback)
	return e
}

func expand(path, provider string) string {
	return strings.ReplaceAll(path, "{provider}", url.PathEscape(provider))
}
