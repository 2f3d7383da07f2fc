package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRequestFailed   = errors.New("transport.request_failed")
	ErrInvalidRequest  = errors.New("transport.invalid_request")
	ErrInvalidResponse = errors.New("transport.invalid_response")
	ErrEmptyBody       = errors.New("transport.empty_body")
)

// ConflictMessage is reported for 409 responses that carry no message of their own.
const ConflictMessage = "An account with this email already exists. Please sign in instead."

// RequestError is the single failure type Send returns. Status is the HTTP
// status code, or 0 when no response was received.
type RequestError struct {
	Message string
	Status  int
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap exposes ErrRequestFailed and the underlying cause to errors.Is/As.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Err}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

// IsStatus reports whether err is a RequestError with the given status.
func IsStatus(err error, status int) bool {
	return status != 0 && StatusCode(err) == status
}

// statusError builds the failure for a non-2xx response. A server-supplied
// "error" field wins, then "message", then a status-specific fallback.
func statusError(status int, serverMessage string) *RequestError {
	msg := serverMessage
	if msg == "" {
		switch status {
		case http.StatusConflict:
			msg = ConflictMessage
		case http.StatusUnauthorized:
			msg = "Unauthorized"
		default:
			msg = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
		}
	}
	return &RequestError{Message: msg, Status: status}
}

func networkError(err error) *RequestError {
	return &RequestError{Message: "network error: " + err.Error(), Err: err}
}
