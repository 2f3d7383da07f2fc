// Package authstate holds the client-side view of the session and the only
// operations allowed to change it.
//
// A Store is in one of three phases:
//
//	Loading          a validation or login is in flight, no user
//	Unauthenticated  no user
//	Authenticated    a user fetched from the identity service
//
// Init, Login, Logout and CheckSession are the compound flows; SetUser,
// ClearUser and SetLoading are the primitives. Every entry point ends in
// exactly one phase, and a snapshot never reports IsAuthenticated without a
// User.
//
// While Authenticated, a monitor re-runs CheckSession on an interval (five
// minutes by default); a failed check demotes the store silently and stops
// the monitor. Logout, ClearUser, Login and Init start a new generation, so a
// slow check that resolves afterwards cannot bring a cleared session back.
// The phase table backs this up: a validation result is accepted only from
// Loading or Authenticated, never from Unauthenticated.
//
//	store := authstate.New(identity.New(tr))
//	defer store.Close()
//	store.Init(ctx)
//	for st := range store.Subscribe(ctx).Receive() {
//		render(st)
//	}
package authstate
