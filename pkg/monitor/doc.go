// Package monitor keeps a session truthful while it is idle: a single ticker
// goroutine re-validates it on a fixed interval (five minutes by default).
//
// Start returns a *Handle; starting again while a loop runs returns the same
// handle, so there is never more than one ticker. The loop ends when the
// handle is stopped, when the check reports the session is gone, or when the
// context passed to Start is done. Nothing survives a restart: the owner
// starts a fresh loop after it re-establishes the session.
package monitor
