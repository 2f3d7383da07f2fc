package authstate

import (
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/identity"
)

// Phase is the store's position in the session lifecycle.
type Phase string

const (
	PhaseLoading         Phase = "loading"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticated   Phase = "authenticated"
)

type event string

const (
	eventBegin   event = "begin"
	eventResolve event = "resolve"
	eventReject  event = "reject"
	eventAssign  event = "assign"
)

// State is a snapshot of the session as the client sees it.
// IsAuthenticated is true exactly when User is non-nil, and IsLoading exactly
// when Phase is PhaseLoading.
type State struct {
	User            *identity.User
	IsAuthenticated bool
	IsLoading       bool
	LastCheckedAt   time.Time
	Phase           Phase
}

func loadingState() State {
	return State{IsLoading: true, Phase: PhaseLoading}
}

func unauthenticatedState() State {
	return State{Phase: PhaseUnauthenticated}
}

func authenticatedState(user *identity.User, at time.Time) State {
	return State{
		User:            user,
		IsAuthenticated: true,
		LastCheckedAt:   at,
		Phase:           PhaseAuthenticated,
	}
}
