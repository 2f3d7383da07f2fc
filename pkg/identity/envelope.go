package identity

import (
	"errors"

	"github.com/dmitrymomot/sessionkit/pkg/transport"
)

// statusEnvelope is the login and register response.
type statusEnvelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// softFailure returns an *AuthError when the body reports "success": false.
// A body without the field, or no JSON body at all, counts as success.
func softFailure(resp *transport.Response) error {
	env, err := transport.Decode[statusEnvelope](resp)
	if err != nil {
		if errors.Is(err, transport.ErrEmptyBody) {
			return nil
		}
		return errors.Join(ErrInvalidResponse, err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &AuthError{Message: msg}
	}
	return nil
}

// currentUserEnvelope is the current-user response. The full variant wraps
// the user in "data"; the reduced variant reports "authenticated" and "email"
// at the top level.
type currentUserEnvelope struct {
	Data          *User  `json:"data"`
	Authenticated *bool  `json:"authenticated"`
	Email         string `json:"email"`
}

// user returns the valid user carried by the envelope, or nil.
func (e currentUserEnvelope) user() *User {
	if e.Data != nil {
		if e.Data.Email == "" {
			return nil
		}
		return e.Data
	}
	if e.Authenticated != nil && *e.Authenticated && e.Email != "" {
		return &User{Email: e.Email}
	}
	return nil
}

// urlEnvelope is the authorization URL response.
type urlEnvelope struct {
	Data string `json:"data"`
}
