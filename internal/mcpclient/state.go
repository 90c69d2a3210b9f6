// Package mcpclient implements the endpoint: the client-side state
// machine that turns a raw transport.Transport byte stream into a
// correlated, typed, cancellable request/response system with
// capability enforcement. Grounded on the teacher's
// internal/mcp/state package (MCPStateMachine embedding internal/fsm),
// mirrored here for the client's own lifecycle instead of the
// teacher's server-side one.
// file: internal/mcpclient/state.go
package mcpclient

import (
	"github.com/dkoosis/mcpclient/internal/fsm"
	"github.com/dkoosis/mcpclient/internal/logging"
)

// Endpoint lifecycle states, per the connection state diagram.
const (
	StateDisconnected fsm.State = "disconnected"
	StateConnecting   fsm.State = "connecting"
	StateInitializing fsm.State = "initializing"
	StateRunning      fsm.State = "running"
	StateFailed       fsm.State = "failed"
)

// Endpoint lifecycle events.
const (
	eventStart        fsm.Event = "start"
	eventTransportUp  fsm.Event = "transport_up"
	eventHandshakeOK  fsm.Event = "handshake_ok"
	eventHandshakeErr fsm.Event = "handshake_err"
	eventTransportErr fsm.Event = "transport_err"
	eventStop         fsm.Event = "stop"
	eventReconnect    fsm.Event = "reconnect"
)

func buildStateMachine(logger logging.Logger) (fsm.FSM, error) {
	builder := fsm.NewFSM(StateDisconnected, logger)

	builder.AddTransition(fsm.Transition{
		From: []fsm.State{StateDisconnected, StateFailed}, Event: eventStart, To: StateConnecting,
	})
	builder.AddTransition(fsm.Transition{
		From: []fsm.State{StateConnecting}, Event: eventTransportUp, To: StateInitializing,
	})
	builder.AddTransition(fsm.Transition{
		From: []fsm.State{StateInitializing}, Event: eventHandshakeOK, To: StateRunning,
	})
	builder.AddTransition(fsm.Transition{
		From: []fsm.State{StateInitializing}, Event: eventHandshakeErr, To: StateFailed,
	})
	builder.AddTransition(fsm.Transition{
		From: []fsm.State{StateConnecting, StateInitializing, StateRunning}, Event: eventTransportErr, To: StateFailed,
	})
	builder.AddTransition(fsm.Transition{
		From: []fsm.State{StateRunning, StateConnecting, StateInitializing}, Event: eventStop, To: StateDisconnected,
	})
	builder.AddTransition(fsm.Transition{
		From: []fsm.State{StateFailed}, Event: eventReconnect, To: StateConnecting,
	})

	if err := builder.Build(); err != nil {
		return nil, err
	}
	return builder, nil
}
