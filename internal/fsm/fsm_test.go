package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/dkoosis/mcpclient/internal/logging"
	lfsm "github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stateIdle     State = "idle"
	stateRunning  State = "running"
	statePaused   State = "paused"
	stateFinished State = "finished"

	eventStart Event = "start"
	eventPause Event = "pause"
	eventStop  Event = "stop"
	eventReset Event = "reset"
	eventForce Event = "force"
)

func buildTestFSM(t *testing.T) FSM {
	t.Helper()
	builder := NewFSM(stateIdle, logging.GetNoopLogger())

	builder.AddTransition(Transition{From: []State{stateIdle}, Event: eventStart, To: stateRunning})
	builder.AddTransition(Transition{From: []State{stateRunning}, Event: eventPause, To: statePaused})
	builder.AddTransition(Transition{From: []State{stateRunning}, Event: eventStop, To: stateFinished})
	builder.AddTransition(Transition{From: []State{statePaused}, Event: eventStart, To: stateRunning})
	builder.AddTransition(Transition{From: []State{statePaused}, Event: eventStop, To: stateFinished})
	builder.AddTransition(Transition{From: []State{stateFinished}, Event: eventReset, To: stateIdle})

	require.NoError(t, builder.Build())
	return builder
}

func TestFSM_NewFSM_ReturnsValidBuilder(t *testing.T) {
	builder := NewFSM(stateIdle, logging.GetNoopLogger())
	require.NotNil(t, builder)
}

func TestFSM_Build_IsIdempotent(t *testing.T) {
	builder := NewFSM(stateIdle, logging.GetNoopLogger())
	require.NoError(t, builder.Build())
	require.NoError(t, builder.Build())
}

func TestFSM_BasicTransitions_Succeeds(t *testing.T) {
	m := buildTestFSM(t)
	ctx := context.Background()

	assert.Equal(t, stateIdle, m.CurrentState())

	require.NoError(t, m.Transition(ctx, eventStart, nil))
	assert.Equal(t, stateRunning, m.CurrentState())

	require.NoError(t, m.Transition(ctx, eventStop, nil))
	assert.Equal(t, stateFinished, m.CurrentState())
}

func TestFSM_InvalidTransition_ReturnsError(t *testing.T) {
	m := buildTestFSM(t)
	ctx := context.Background()

	assert.False(t, m.CanTransition(eventStop))
	err := m.Transition(ctx, eventStop, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inappropriate in current state")
	assert.Equal(t, stateIdle, m.CurrentState())
}

func TestFSM_TransitionWithAction_ExecutesAction(t *testing.T) {
	builder := NewFSM(stateIdle, logging.GetNoopLogger())
	var ran atomic.Bool

	action := func(_ context.Context, event Event, data interface{}) error {
		ran.Store(true)
		assert.Equal(t, eventStart, event)
		assert.Equal(t, "some data", data.(string))
		return nil
	}

	builder.AddTransition(Transition{From: []State{stateIdle}, Event: eventStart, To: stateRunning, Action: action})
	require.NoError(t, builder.Build())

	require.NoError(t, builder.Transition(context.Background(), eventStart, "some data"))
	assert.Equal(t, stateRunning, builder.CurrentState())
	assert.True(t, ran.Load())
}

func TestFSM_TransitionWithFailingAction_StillTransitions(t *testing.T) {
	builder := NewFSM(stateIdle, logging.GetNoopLogger())
	var ran atomic.Bool

	action := func(_ context.Context, _ Event, _ interface{}) error {
		ran.Store(true)
		return fmt.Errorf("action failed deliberately")
	}

	builder.AddTransition(Transition{From: []State{stateIdle}, Event: eventStart, To: stateRunning, Action: action})
	require.NoError(t, builder.Build())

	require.NoError(t, builder.Transition(context.Background(), eventStart, nil))
	assert.Equal(t, stateRunning, builder.CurrentState())
	assert.True(t, ran.Load())
}

func TestFSM_TransitionWithGuard_AllowsAndBlocks(t *testing.T) {
	builder := NewFSM(stateIdle, logging.GetNoopLogger())
	canForce := true

	guard := func(_ context.Context, event Event, data interface{}) bool {
		require.Equal(t, eventForce, event)
		require.Equal(t, "force data", data.(string))
		return canForce
	}

	builder.AddTransition(Transition{From: []State{stateIdle}, Event: eventForce, To: stateRunning, Condition: guard})
	require.NoError(t, builder.Build())
	ctx := context.Background()

	canForce = true
	assert.True(t, builder.CanTransition(eventForce))
	require.NoError(t, builder.Transition(ctx, eventForce, "force data"))
	assert.Equal(t, stateRunning, builder.CurrentState())

	require.NoError(t, builder.SetState(stateIdle))
	require.Equal(t, stateIdle, builder.CurrentState())

	canForce = false
	assert.True(t, builder.CanTransition(eventForce))
	err := builder.Transition(ctx, eventForce, "force data")
	require.Error(t, err)
	var canceled lfsm.CanceledError
	require.True(t, errors.As(err, &canceled))
	assert.Equal(t, stateIdle, builder.CurrentState())
}

func TestFSM_Reset_RestoresInitialState(t *testing.T) {
	m := buildTestFSM(t)
	ctx := context.Background()

	require.NoError(t, m.Transition(ctx, eventStart, nil))
	require.NoError(t, m.Transition(ctx, eventPause, nil))
	require.Equal(t, statePaused, m.CurrentState())

	require.NoError(t, m.Reset())

	assert.Equal(t, stateIdle, m.CurrentState())
	assert.True(t, m.CanTransition(eventStart))
	assert.False(t, m.CanTransition(eventPause))

	require.NoError(t, m.Transition(ctx, eventStart, nil))
	assert.Equal(t, stateRunning, m.CurrentState())
}

func TestFSM_Build_Fails_When_ConflictingDestinations(t *testing.T) {
	builder := NewFSM(stateIdle, logging.GetNoopLogger())
	builder.AddTransition(Transition{From: []State{stateIdle}, Event: eventStart, To: stateRunning})
	builder.AddTransition(Transition{From: []State{stateIdle}, Event: eventStart, To: statePaused})

	err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting destinations")
}

func TestFSM_Build_Fails_When_MissingFromState(t *testing.T) {
	builder := NewFSM(stateIdle, logging.GetNoopLogger())
	builder.AddTransition(Transition{Event: eventStart, To: stateRunning})

	err := builder.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing 'From' states")
}
