// Package statemachine provides a small, thread-safe finite state machine.
//
// States and events are plain strings; transitions carry optional actions
// that run before the state change and abort it on error:
//
//	m := statemachine.New("awaiting",
//		statemachine.T("awaiting", "verifying", "classified", nil),
//		statemachine.T("verifying", "verified", "confirmed", onVerified),
//	)
//	err := m.Fire(ctx, "classified", payload)
//
// Firing an event with no transition from the current state returns
// ErrNoTransition, which is how terminal states absorb further events.
package statemachine
