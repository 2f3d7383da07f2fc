// Package statemachine provides a small generic finite state machine.
//
// States and events are any comparable types, typically string-based named
// types. Transitions form a table keyed by source state and event:
//
//	type phase string
//	type event string
//
//	m := statemachine.New[phase, event]("idle",
//		statemachine.WithTransition[phase, event]("start", "running", "idle"),
//		statemachine.WithTransition[phase, event]("stop", "idle", "running", "idle"),
//	)
//	to, err := m.Fire("start")
//
// Fire returns *ErrNoTransitionAvailable when the current state has no entry
// for the event and leaves the state untouched. Hooks run after each
// transition, outside the machine's lock.
package statemachine
