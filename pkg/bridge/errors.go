package bridge

import "errors"

var (
	ErrMissingProvider = errors.New("bridge.missing_provider")
	ErrMissingCode     = errors.New("bridge.missing_code")
)
