// Package statemachine implements a small, typed finite state machine.
//
// States and events are any comparable types, so callers can use their own
// enums directly:
//
//	sm, err := statemachine.New(Idle,
//	    statemachine.WithTransition(Idle, Start, Running),
//	    statemachine.WithTransition(Running, Stop, Idle),
//	)
//	sm.OnTransition(func(from, to State, ev Event) { log.Println(from, "->", to) })
//	_, err = sm.Fire(Start)
//
// Fire returns *ErrNoTransitionAvailable when the current state has no
// transition for the event; the state is left unchanged. Observers run after
// the state changed, outside the machine's lock, and only when the state
// actually changed.
package statemachine
