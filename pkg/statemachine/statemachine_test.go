package statemachine_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/statemachine"
)

type state string

type event string

const (
	idle    state = "idle"
	running state = "running"

	start event = "start"
	stop  event = "stop"
)

func newMachine(t *testing.T) *statemachine.Machine[state, event] {
	t.Helper()
	sm, err := statemachine.New(idle,
		statemachine.WithTransition(idle, start, running),
		statemachine.WithTransition(running, stop, idle),
		statemachine.WithTransition(idle, stop, idle),
	)
	require.NoError(t, err)
	return sm
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	sm := newMachine(t)
	assert.Equal(t, idle, sm.Current())

	to, err := sm.Fire(start)
	require.NoError(t, err)
	assert.Equal(t, running, to)
	assert.Equal(t, running, sm.Current())

	_, err = sm.Fire(start)
	require.Error(t, err)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
	assert.Equal(t, running, sm.Current())
}

func TestMachine_Observers(t *testing.T) {
	t.Parallel()

	sm := newMachine(t)

	var mu sync.Mutex
	var seen []string
	sm.OnTransition(func(from, to state, ev event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(from)+">"+string(to)+"@"+string(ev))
	})

	_, _ = sm.Fire(stop) // self transition, not observed
	_, _ = sm.Fire(start)
	_, _ = sm.Fire(stop)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"idle>running@start", "running>idle@stop"}, seen)
}

func TestNew_DuplicateTransition(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(idle,
		statemachine.WithTransition(idle, start, running),
		statemachine.WithTransition(idle, start, idle),
	)
	assert.True(t, errors.Is(err, statemachine.ErrDuplicateTransition))
}
