// file: internal/transport/stdio/stdio_test.go
package stdio_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/transport"
	"github.com/dkoosis/mcpclient/internal/transport/stdio"
)

func newTransport(opts stdio.Options) *stdio.Transport {
	if opts.Transport.SendTimeout == 0 {
		opts.Transport.SendTimeout = 2 * time.Second
	}
	if opts.Transport.MaxMessageSize == 0 {
		opts.Transport.MaxMessageSize = transport.DefaultMaxMessageSize
	}
	return stdio.New(opts)
}

// Echo stdio, per the spec's scenario 1: spawn `echo hello-world`, expect
// a frame containing that text followed by natural EOF settling the
// transport to Disconnected without us calling Stop.
func TestStdioTransport_EchoFrame(t *testing.T) {
	tr := newTransport(stdio.Options{Command: "echo", Args: []string{"hello-world"}})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tr.Start(ctx))

	var saw string
	select {
	case frame, ok := <-tr.Messages():
		require.True(t, ok)
		saw = string(frame)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo frame")
	}
	assert.Contains(t, saw, "hello-world")

	deadline := time.Now().Add(2 * time.Second)
	for tr.State() != transport.StateDisconnected && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, transport.StateDisconnected, tr.State())

	// stop() on an already-stopped transport is a no-op.
	require.NoError(t, tr.Stop())
}

// Oversize send, per the spec's scenario 2: maxMessageSize=10 against
// `cat` must reject before any bytes reach the wire.
func TestStdioTransport_OversizeSendRejected(t *testing.T) {
	tr := newTransport(stdio.Options{
		Command:   "cat",
		Transport: transport.Config{MaxMessageSize: 10, SendTimeout: 2 * time.Second},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Start(ctx))
	defer tr.Stop()

	err := tr.Send(ctx, make([]byte, 100), 0)
	require.Error(t, err)
	assert.True(t, mcperror.GetErrorCategory(err) == mcperror.CategoryTransport)

	require.NoError(t, tr.Stop())
}

// Send after stop, per the spec's scenario 3: must fail with InvalidState
// whose reason contains "not connected".
func TestStdioTransport_SendAfterStop(t *testing.T) {
	tr := newTransport(stdio.Options{Command: "cat"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Start(ctx))
	require.NoError(t, tr.Stop())

	err := tr.Send(ctx, []byte("Hello?"), 0)
	require.Error(t, err)
	assert.True(t, mcperror.IsInvalidState(err))
	assert.Contains(t, err.Error(), "not connected")
}

// start() while already Connected is a silent no-op, never InvalidState
// nor a second spawn.
func TestStdioTransport_StartIsIdempotent(t *testing.T) {
	tr := newTransport(stdio.Options{Command: "cat"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Start(ctx))
	require.NoError(t, tr.Start(ctx))
	assert.Equal(t, transport.StateConnected, tr.State())

	require.NoError(t, tr.Stop())
}

func TestStdioTransport_UnresolvableCommandFails(t *testing.T) {
	tr := newTransport(stdio.Options{Command: "definitely-not-a-real-binary-xyz"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := tr.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, transport.StateFailed, tr.State())
}

func TestStdioTransport_RoundTripViaCat(t *testing.T) {
	tr := newTransport(stdio.Options{Command: "cat"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tr.Start(ctx))
	defer tr.Stop()

	require.NoError(t, tr.Send(ctx, []byte(`{"jsonrpc":"2.0","method":"ping"}`), 0))

	select {
	case frame := <-tr.Messages():
		assert.Equal(t, `{"jsonrpc":"2.0","method":"ping"}`, strings.TrimSpace(string(frame)))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cat to echo the frame back")
	}
}
