package csrf

import "errors"

var (
	ErrTokenMissing  = errors.New("csrf.token_missing")
	ErrTokenMismatch = errors.New("csrf.token_mismatch")
)
