package statemachine_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/statemachine"
)

type phase string

type event string

const (
	idle    phase = "idle"
	running phase = "running"
	done    phase = "done"

	start  event = "start"
	finish event = "finish"
	abort  event = "abort"
)

func newMachine(opts ...statemachine.Option[phase, event]) *statemachine.Machine[phase, event] {
	base := []statemachine.Option[phase, event]{
		statemachine.WithTransition[phase, event](start, running, idle),
		statemachine.WithTransition[phase, event](finish, done, running),
		statemachine.WithTransition[phase, event](abort, idle, idle, running, done),
	}
	return statemachine.New(idle, append(base, opts...)...)
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		events  []event
		want    phase
		wantErr bool
	}{
		{"single transition", []event{start}, running, false},
		{"chain", []event{start, finish}, done, false},
		{"multi-source event", []event{start, finish, abort}, idle, false},
		{"no transition keeps state", []event{finish}, idle, true},
		{"invalid after valid", []event{start, start}, running, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newMachine()
			var err error
			for _, e := range tt.events {
				_, err = m.Fire(e)
			}
			assert.Equal(t, tt.want, m.Current())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, statemachine.IsNoTransitionAvailableError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMachine_ErrorMessage(t *testing.T) {
	t.Parallel()

	_, err := newMachine().Fire(finish)
	var noTransition *statemachine.ErrNoTransitionAvailable
	require.ErrorAs(t, err, &noTransition)
	assert.Equal(t, "idle", noTransition.StateName)
	assert.Equal(t, "finish", noTransition.EventName)
	assert.Contains(t, err.Error(), "no transition available")
}

func TestMachine_Can(t *testing.T) {
	t.Parallel()

	m := newMachine()
	assert.True(t, m.Can(start))
	assert.True(t, m.Can(abort))
	assert.False(t, m.Can(finish))
}

func TestMachine_Hooks(t *testing.T) {
	t.Parallel()

	type step struct {
		from, to phase
		e        event
	}
	var steps []step
	m := newMachine(statemachine.WithHook[phase, event](func(from, to phase, e event) {
		steps = append(steps, step{from, to, e})
	}))

	_, _ = m.Fire(start)
	_, _ = m.Fire(start)
	_, _ = m.Fire(finish)

	assert.Equal(t, []step{{idle, running, start}, {running, done, finish}}, steps)
}

func TestMachine_Reset(t *testing.T) {
	t.Parallel()

	m := newMachine()
	_, err := m.Fire(start)
	require.NoError(t, err)
	m.Reset()
	assert.Equal(t, idle, m.Current())
}

func TestMachine_LaterDefinitionWins(t *testing.T) {
	t.Parallel()

	m := newMachine(statemachine.WithTransition[phase, event](start, done, idle))
	to, err := m.Fire(start)
	require.NoError(t, err)
	assert.Equal(t, done, to)
}

func TestMachine_Concurrent(t *testing.T) {
	t.Parallel()

	m := newMachine()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Fire(start)
			_, _ = m.Fire(abort)
			_ = m.Current()
		}()
	}
	wg.Wait()
	assert.Contains(t, []phase{idle, running}, m.Current())
}
