// Package fsm wraps looplab/fsm behind a small interface tailored to how
// this repo uses a state machine: build a fixed transition table once,
// then drive it with typed states and events. internal/mcpclient's
// connection state machine is its consumer.
package fsm

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/mcpclient/internal/logging"
	lfsm "github.com/looplab/fsm"
)

// State is one node of the machine.
type State string

// Event is a trigger that may move the machine from one State to another.
type Event string

// TransitionAction runs after a transition completes, with any data passed
// to Transition.
type TransitionAction func(ctx context.Context, event Event, data interface{}) error

// GuardCondition runs before a transition is allowed; returning false
// cancels it.
type GuardCondition func(ctx context.Context, event Event, data interface{}) bool

// Transition is one edge of the machine: Event moves the machine from any
// state in From to To, subject to Condition, followed by Action.
type Transition struct {
	From      []State
	To        State
	Event     Event
	Action    TransitionAction
	Condition GuardCondition
}

// FSM is a finite state machine built from a fixed set of Transitions.
type FSM interface {
	// AddTransition records an edge. Call Build after the last one.
	AddTransition(transition Transition) FSM
	// Build compiles the recorded transitions into a runnable machine.
	// Calling it again is a no-op that returns the first Build's result.
	Build() error
	CurrentState() State
	// CanTransition reports whether event is defined for the current
	// state; it does not evaluate guard conditions.
	CanTransition(event Event) bool
	Transition(ctx context.Context, event Event, data interface{}) error
	// SetState forces the machine into state, bypassing transitions and
	// their actions.
	SetState(state State) error
	// Reset forces the machine back to its initial state.
	Reset() error
}

// machine is the FSM implementation backed by looplab/fsm.
type machine struct {
	initialState State
	logger       logging.Logger
	transitions  []Transition

	mu       sync.RWMutex
	fsm      *lfsm.FSM
	buildErr error
}

// NewFSM returns a machine seeded at initialState. Add edges with
// AddTransition, then call Build.
func NewFSM(initialState State, logger logging.Logger) FSM {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &machine{
		initialState: initialState,
		logger:       logger.WithField("component", "fsm"),
	}
}

func (m *machine) AddTransition(t Transition) FSM {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fsm != nil {
		if m.buildErr == nil {
			m.buildErr = errors.New("cannot AddTransition after Build")
		}
		return m
	}
	if len(t.From) == 0 {
		if m.buildErr == nil {
			m.buildErr = errors.New("transition definition missing 'From' states")
		}
		return m
	}
	m.transitions = append(m.transitions, t)
	return m
}

func (m *machine) Build() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fsm != nil {
		return m.buildErr
	}
	if m.buildErr != nil {
		return m.buildErr
	}

	events, err := compileEvents(m.transitions)
	if err != nil {
		m.buildErr = err
		return err
	}
	m.fsm = lfsm.NewFSM(string(m.initialState), events, m.buildCallbacks())
	m.logger.Info("fsm built", "initialState", m.initialState, "transitions", len(m.transitions))
	return nil
}

// compileEvents merges per-transition edges into the one lfsm.EventDesc
// per event name that looplab/fsm expects, failing if two transitions
// with the same event name disagree on destination.
func compileEvents(transitions []Transition) ([]lfsm.EventDesc, error) {
	byName := make(map[string]lfsm.EventDesc)
	order := make([]string, 0, len(transitions))

	for _, t := range transitions {
		name, dst := string(t.Event), string(t.To)
		desc, seen := byName[name]
		if !seen {
			desc = lfsm.EventDesc{Name: name, Dst: dst}
			order = append(order, name)
		} else if desc.Dst != dst {
			return nil, errors.Newf(
				"conflicting destinations ('%s' and '%s') for event '%s'", desc.Dst, dst, name)
		}
		for _, s := range t.From {
			desc.Src = append(desc.Src, string(s))
		}
		byName[name] = desc
	}

	events := make([]lfsm.EventDesc, 0, len(order))
	for _, name := range order {
		desc := byName[name]
		desc.Src = dedupe(desc.Src)
		events = append(events, desc)
	}
	return events, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// buildCallbacks wires a before_<event> guard callback per guarded event
// name and a chained enter_<state> action callback per action-bearing
// transition entering that state.
func (m *machine) buildCallbacks() lfsm.Callbacks {
	callbacks := make(lfsm.Callbacks)
	guarded := make(map[Event]bool)

	for i, t := range m.transitions {
		if t.Condition != nil && !guarded[t.Event] {
			callbacks["before_"+string(t.Event)] = m.guardCallback(t)
			guarded[t.Event] = true
		}
		if t.Action != nil {
			name := "enter_" + string(t.To)
			callbacks[name] = m.actionCallback(i, callbacks[name])
		}
	}
	return callbacks
}

// guardCallback evaluates t.Condition, but only when the event actually
// fired from one of t.From — looplab/fsm invokes before_<event> once per
// event regardless of source state, so transitions sharing an event name
// must each filter to their own sources.
func (m *machine) guardCallback(t Transition) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		if !containsState(t.From, e.Src) {
			return
		}
		if !t.Condition(ctx, t.Event, firstArg(e.Args)) {
			e.Cancel(errors.Newf("guard condition for event '%s' from state '%s' failed", t.Event, e.Src))
		}
	}
}

// actionCallback runs the transition at transitionIndex's Action when the
// firing event matches it, then delegates to next so multiple actions
// entering the same state all run.
func (m *machine) actionCallback(transitionIndex int, next lfsm.Callback) lfsm.Callback {
	return func(ctx context.Context, e *lfsm.Event) {
		m.mu.RLock()
		t := m.transitions[transitionIndex]
		m.mu.RUnlock()

		if string(t.Event) == e.Event && containsState(t.From, e.Src) {
			if err := t.Action(ctx, t.Event, firstArg(e.Args)); err != nil {
				m.logger.Error("transition action failed", "event", t.Event, "to", t.To, "error", err)
			}
		}
		if next != nil {
			next(ctx, e)
		}
	}
}

func containsState(states []State, s string) bool {
	for _, st := range states {
		if string(st) == s {
			return true
		}
	}
	return false
}

func firstArg(args []interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func (m *machine) CurrentState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fsm == nil {
		return ""
	}
	return State(m.fsm.Current())
}

func (m *machine) CanTransition(event Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fsm == nil {
		return false
	}
	return m.fsm.Can(string(event))
}

func (m *machine) Transition(ctx context.Context, event Event, data interface{}) error {
	m.mu.RLock()
	fsmInstance := m.fsm
	buildErr := m.buildErr
	m.mu.RUnlock()
	if fsmInstance == nil {
		return buildErr
	}

	var args []interface{}
	if data != nil {
		args = append(args, data)
	}

	err := fsmInstance.Event(ctx, string(event), args...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, &lfsm.NoTransitionError{}), errors.Is(err, &lfsm.InvalidEventError{}), errors.Is(err, &lfsm.UnknownEventError{}):
		return errors.Wrap(err, "transition not possible")
	case errors.Is(err, &lfsm.CanceledError{}), strings.Contains(err.Error(), "guard condition"):
		return errors.Wrap(err, "transition cancelled by guard condition")
	case errors.Is(err, &lfsm.InTransitionError{}):
		return errors.Wrap(err, "fsm concurrency error")
	default:
		return errors.Wrapf(err, "failed to transition on event '%s' from state '%s'", event, m.CurrentState())
	}
}

func (m *machine) SetState(state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fsm == nil {
		return m.buildErr
	}
	m.fsm.SetState(string(state))
	return nil
}

func (m *machine) Reset() error {
	return m.SetState(m.initialState)
}
