package identity

import "errors"

var (
	ErrAuthFailed            = errors.New("identity.auth_failed")
	ErrSessionNotEstablished = errors.New("identity.session_not_established")
	ErrMissingCredentials    = errors.New("identity.missing_credentials")
	ErrMissingProvider       = errors.New("identity.missing_provider")
	ErrMissingCode           = errors.New("identity.missing_code")
	ErrInvalidResponse       = errors.New("identity.invalid_response")
)

// AuthError is a logical failure reported by the identity service inside a
// successful HTTP response ("success": false). Message is the server's text.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "Authentication failed"
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return ErrAuthFailed
}
