// Package transport defines the abstract byte-stream contract shared by
// the stdio and SSE transports, plus the retry/timeout helpers both lean
// on. Concrete implementations live in transport/stdio and transport/sse.
// file: internal/transport/contract.go
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcperror"
)

// DefaultMaxMessageSize is the default cap on a single frame, chosen to
// comfortably hold large tool results while still bounding memory use.
const DefaultMaxMessageSize = 4 * 1024 * 1024 // 4 MiB, per config default.

// State is the lifecycle state of a transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config carries the knobs common to every transport implementation.
type Config struct {
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	MaxMessageSize int
	RetryPolicy    RetryPolicy
	Logger         logging.Logger
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		SendTimeout:    30 * time.Second,
		MaxMessageSize: DefaultMaxMessageSize,
		RetryPolicy:    DefaultRetryPolicy(),
		Logger:         logging.GetNoopLogger(),
	}
}

func (c Config) logger() logging.Logger {
	return c.EffectiveLogger()
}

func (c Config) maxMessageSize() int {
	return c.MaxSize()
}

// EffectiveLogger returns c.Logger, falling back to the no-op logger.
// Exported so the stdio/sse subpackages can resolve the same default
// without reaching into this package's private fields.
func (c Config) EffectiveLogger() logging.Logger {
	if c.Logger == nil {
		return logging.GetNoopLogger()
	}
	return c.Logger
}

// MaxSize returns c.MaxMessageSize, falling back to DefaultMaxMessageSize.
func (c Config) MaxSize() int {
	if c.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}
	return c.MaxMessageSize
}

// EffectiveSendTimeout returns timeout if positive, else c.SendTimeout,
// else 30s — the same fallback chain Send(ctx, data, timeout) uses.
func (c Config) EffectiveSendTimeout(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	if c.SendTimeout > 0 {
		return c.SendTimeout
	}
	return 30 * time.Second
}

// Transport is the abstract byte-stream carrier both the stdio and SSE
// implementations satisfy. Implementations must be safe for concurrent
// use: at most one mutating operation is expected to run at a time per
// instance, but callers from multiple goroutines must not corrupt state.
type Transport interface {
	// Start is idempotent: calling it while already Connected returns
	// nil without restarting anything.
	Start(ctx context.Context) error

	// Stop is idempotent and always ends the inbound message stream.
	Stop() error

	// Send transmits one frame. timeout of zero means use the
	// transport's configured SendTimeout.
	Send(ctx context.Context, data []byte, timeout time.Duration) error

	// Messages returns a channel yielding one inbound frame per
	// element. The channel closes when the transport stops or fails.
	// Calling Messages again after a restart yields a fresh channel.
	Messages() <-chan []byte

	// State returns the current state.
	State() State

	// StateChanges returns a channel of subsequent state transitions.
	// The channel is never closed, Stop included.
	StateChanges() <-chan State
}

// StateTracker is embedded by concrete transports (in this package and
// the stdio/sse subpackages) to share the state/notification
// bookkeeping rather than duplicating it per implementation.
type StateTracker struct {
	mu     sync.Mutex
	state  State
	subs   []chan State
	logger logging.Logger
}

// NewStateTracker builds a tracker starting in StateDisconnected.
func NewStateTracker(logger logging.Logger) *StateTracker {
	return &StateTracker{state: StateDisconnected, logger: logger}
}

// State returns the current state. Named to satisfy the Transport
// interface directly when embedded by a concrete transport.
func (t *StateTracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState records a new state and publishes it to every subscriber.
func (t *StateTracker) SetState(s State) {
	t.mu.Lock()
	t.state = s
	subs := make([]chan State, len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- s:
		default:
			// Slow subscriber: drop rather than block the transition.
		}
	}
}

// StateChanges returns a fresh channel of subsequent state transitions,
// satisfying the Transport interface directly when embedded.
func (t *StateTracker) StateChanges() <-chan State {
	ch := make(chan State, 8)
	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()
	return ch
}

// stateTracker/newStateTracker aliases keep this package's own
// lower-case call sites (mock.go) unchanged.
type stateTracker = StateTracker

func newStateTracker(logger logging.Logger) *stateTracker {
	return NewStateTracker(logger)
}

// CheckSendable returns InvalidState unless the transport is Connected,
// and MessageTooLarge if data exceeds maxSize. Shared by both transports
// so the boundary behavior in the spec's oversize-send scenario is
// enforced identically.
func CheckSendable(state State, data []byte, maxSize int) error {
	if state != StateConnected {
		return mcperror.InvalidState("not connected")
	}
	if len(data) > maxSize {
		return mcperror.MessageTooLarge(len(data))
	}
	return nil
}
