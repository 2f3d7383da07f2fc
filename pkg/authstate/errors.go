package authstate

import "errors"

// ErrSuperseded is returned by Login when a later Logout, ClearUser, Init or
// Login started while it was in flight. Its result was discarded.
var ErrSuperseded = errors.New("authstate.superseded")
