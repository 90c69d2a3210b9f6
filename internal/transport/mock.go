// file: internal/transport/mock.go
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcperror"
)

// MockTransport is an in-memory Transport used by endpoint tests to
// exercise handshake, capability gating, progress routing, and
// cancellation without a real child process or HTTP server. Adapted
// from the teacher's channel-pair in-memory transport, generalized to
// the Start/Stop/Send/Messages/State contract.
type MockTransport struct {
	*stateTracker

	out     chan []byte // frames this side has sent, readable by the peer via Outbound()
	in      chan []byte // frames the peer has delivered to this side
	msgCh   chan []byte // current Messages() channel, replaced on each Start
	maxSize int

	mu     sync.Mutex
	closed bool
}

// MockTransportPair links two MockTransport instances so writes on one
// side surface as inbound frames on the other.
type MockTransportPair struct {
	Client *MockTransport
	Server *MockTransport
}

// NewMockTransportPair builds a connected pair of mock transports,
// buffered generously so neither side blocks on ordinary test traffic.
func NewMockTransportPair() *MockTransportPair {
	clientToServer := make(chan []byte, 256)
	serverToClient := make(chan []byte, 256)

	client := &MockTransport{
		stateTracker: newStateTracker(logging.GetNoopLogger()),
		out:          clientToServer,
		in:           serverToClient,
		maxSize:      DefaultMaxMessageSize,
	}
	server := &MockTransport{
		stateTracker: newStateTracker(logging.GetNoopLogger()),
		out:          serverToClient,
		in:           clientToServer,
		maxSize:      DefaultMaxMessageSize,
	}

	return &MockTransportPair{Client: client, Server: server}
}

// Start transitions Disconnected/Failed -> Connected and launches the
// goroutine forwarding inbound frames onto Messages(). Idempotent: a
// second Start while Connected is a no-op.
func (t *MockTransport) Start(_ context.Context) error {
	if t.State() == StateConnected {
		return nil
	}
	t.SetState(StateConnecting)

	t.mu.Lock()
	t.closed = false
	t.msgCh = make(chan []byte, 256)
	msgCh := t.msgCh
	t.mu.Unlock()

	go func() {
		for frame := range t.in {
			t.mu.Lock()
			current := t.msgCh
			closed := t.closed
			t.mu.Unlock()
			if closed || current != msgCh {
				return
			}
			select {
			case current <- frame:
			default:
			}
		}
	}()

	t.SetState(StateConnected)
	return nil
}

// Stop idempotently tears the transport down and closes Messages().
func (t *MockTransport) Stop() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.msgCh != nil {
		close(t.msgCh)
	}
	t.mu.Unlock()

	t.SetState(StateDisconnected)
	return nil
}

// Send enqueues data for delivery to the peer transport.
func (t *MockTransport) Send(ctx context.Context, data []byte, timeout time.Duration) error {
	if err := CheckSendable(t.State(), data, t.maxSize); err != nil {
		return err
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case t.out <- data:
		return nil
	case <-cctx.Done():
		return mcperror.Timeout("send", timeout)
	}
}

// Messages returns the current inbound-frame channel.
func (t *MockTransport) Messages() <-chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.msgCh
}

// InjectServerMessage lets a test deliver a raw frame as if the peer had
// sent it, bypassing the channel plumbing — useful for canned responses.
func (t *MockTransport) InjectServerMessage(data []byte) {
	t.in <- data
}

// SentFrames drains and returns every frame currently queued in out,
// without blocking — used by tests asserting exact outbound frame counts.
func (t *MockTransport) SentFrames() [][]byte {
	var frames [][]byte
	for {
		select {
		case f := <-t.out:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}
