// Package sse implements the HTTP+SSE Transport: a long-lived GET
// carrying server-sent events as the downchannel, and POSTs to a
// server-advertised endpoint as the upchannel. Framing and lifecycle
// mirror the teacher's NDJSON stdio transport (atomic mutex-guarded
// writes, a restartable Messages() channel, idempotent Start/Stop)
// adapted to net/http instead of a child process.
// file: internal/transport/sse/sse.go
package sse

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/transport"
)

// Options configures one SSE transport instance.
type Options struct {
	// URL is the SSE endpoint the client GETs for the downchannel.
	URL string
	// Headers are sent with both the GET and every POST — the
	// bearer/cookie credential pass-through point.
	Headers map[string]string

	Transport transport.Config
	// HTTPClient lets callers supply a pre-configured client (proxies,
	// custom TLS); nil uses a fresh http.Client with no client-level
	// timeout.
	HTTPClient *http.Client
}

// Transport implements the MCP HTTP+SSE client binding.
type Transport struct {
	*transport.StateTracker

	opts   Options
	logger logging.Logger
	client *http.Client
	base   *url.URL

	mu           sync.Mutex
	postEndpoint *url.URL
	msgCh        chan []byte
	cancelGet    context.CancelFunc
	getDone      chan struct{}
	started      bool
}

// New builds an SSE transport. The GET is only initiated once Messages
// is first subscribed, per the spec's lazy-start rule.
func New(opts Options) (*Transport, error) {
	base, err := url.Parse(opts.URL)
	if err != nil {
		return nil, mcperror.InvalidMessage(fmt.Sprintf("invalid SSE url %q: %v", opts.URL, err))
	}

	client := opts.HTTPClient
	if client == nil {
		// No client-level Timeout: the downchannel GET is intentionally
		// long-lived and ends only when Stop cancels its ctx. Send applies
		// its deadline per request via context instead.
		client = &http.Client{}
	}

	logger := opts.Transport.EffectiveLogger().WithField("transport", "sse").WithField("url", opts.URL)

	return &Transport{
		StateTracker: transport.NewStateTracker(logger),
		opts:         opts,
		logger:       logger,
		client:       client,
		base:         base,
	}, nil
}

// Start transitions to Connecting. The actual GET is deferred to the
// first Messages() subscription; calling Start again while Connected or
// Connecting is a no-op.
func (t *Transport) Start(_ context.Context) error {
	state := t.State()
	if state == transport.StateConnected || state == transport.StateConnecting {
		return nil
	}
	t.SetState(transport.StateConnecting)

	t.mu.Lock()
	t.started = true
	t.postEndpoint = nil
	t.mu.Unlock()

	return nil
}

// Messages lazily starts the downchannel GET on first call after Start,
// and returns the channel frames are delivered on. Calling Messages
// again after Stop/restart yields a fresh channel.
func (t *Transport) Messages() <-chan []byte {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		ch := make(chan []byte)
		close(ch)
		return ch
	}
	if t.msgCh != nil {
		ch := t.msgCh
		t.mu.Unlock()
		return ch
	}

	ctx, cancel := context.WithCancel(context.Background())
	msgCh := make(chan []byte, 64)
	done := make(chan struct{})
	t.msgCh = msgCh
	t.cancelGet = cancel
	t.getDone = done
	t.mu.Unlock()

	go t.runDownchannel(ctx, msgCh, done)
	return msgCh
}

func (t *Transport) runDownchannel(ctx context.Context, msgCh chan []byte, done chan struct{}) {
	defer close(done)
	defer func() {
		t.mu.Lock()
		if t.msgCh == msgCh {
			close(t.msgCh)
			t.msgCh = nil
		}
		t.mu.Unlock()
		if t.State() != transport.StateDisconnected {
			t.SetState(transport.StateDisconnected)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.base.String(), nil)
	if err != nil {
		t.logger.Error("failed to build SSE request", "error", err)
		t.SetState(transport.StateFailed)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range t.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return // Stop() cancelled the request; not a failure.
		}
		t.logger.Error("SSE GET failed", "error", err)
		t.SetState(transport.StateFailed)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Error("SSE GET returned non-2xx", "status", resp.StatusCode)
		t.SetState(transport.StateFailed)
		return
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.logger.Error("SSE GET returned unexpected content type", "contentType", ct)
		t.SetState(transport.StateFailed)
		return
	}

	t.SetState(transport.StateConnected)
	t.logger.Info("SSE downchannel connected")

	t.parseEvents(resp.Body, msgCh, done)
}

// parseEvents reads `event:`/`data:` lines. The `endpoint` event updates
// postEndpoint; every other event (including bare `message`) forwards
// its data payload verbatim to msgCh — the spec's "forward unknown
// events" choice from its Open Questions.
func (t *Transport) parseEvents(body io.Reader, msgCh chan []byte, done chan struct{}) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), t.opts.Transport.MaxSize()+4096)

	currentEvent := "message"
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			currentEvent = "message"
			continue
		case strings.HasPrefix(line, "event:"):
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimPrefix(line, "data:")
			if currentEvent == "endpoint" {
				t.handleEndpointEvent(strings.TrimSpace(payload))
				continue
			}
			frame := []byte(strings.TrimPrefix(payload, " "))
			select {
			case msgCh <- frame:
			case <-done:
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		t.logger.Debug("SSE stream read error", "error", err)
	}
}

// handleEndpointEvent resolves the server-advertised POST URL against
// the SSE base, rejecting a cross-origin absolute URL, and atomically
// replaces postEndpoint — honoring the spec's allowance for the server
// to re-emit `endpoint` later to rotate the URL.
func (t *Transport) handleEndpointEvent(raw string) {
	resolved, err := t.base.Parse(raw)
	if err != nil {
		t.logger.Error("invalid endpoint event payload", "raw", raw, "error", err)
		return
	}

	if isAbsolute(raw) && resolved.Scheme != "" && !sameOrigin(t.base, resolved) {
		t.logger.Error("endpoint event origin mismatch", "base", t.base.String(), "endpoint", resolved.String())
		t.mu.Lock()
		t.postEndpoint = nil
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.postEndpoint = resolved
	t.mu.Unlock()
	t.logger.Debug("SSE post endpoint updated", "endpoint", resolved.String())
}

func isAbsolute(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs()
}

func sameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}

// Stop cancels the GET, finalizes the stream, and transitions to
// Disconnected. Idempotent.
func (t *Transport) Stop() error {
	t.mu.Lock()
	cancel := t.cancelGet
	done := t.getDone
	t.started = false
	t.cancelGet = nil
	t.getDone = nil
	t.mu.Unlock()

	if cancel == nil {
		t.SetState(transport.StateDisconnected)
		return nil
	}
	cancel()
	if done != nil {
		<-done
	}
	t.SetState(transport.StateDisconnected)
	return nil
}

// Send POSTs data to the server-advertised endpoint. Requires Connected
// state and a known postEndpoint.
func (t *Transport) Send(ctx context.Context, data []byte, timeout time.Duration) error {
	if err := transport.CheckSendable(t.State(), data, t.opts.Transport.MaxSize()); err != nil {
		return err
	}

	t.mu.Lock()
	endpoint := t.postEndpoint
	t.mu.Unlock()
	if endpoint == nil {
		return mcperror.InvalidState("server endpoint not known yet")
	}

	timeout = t.opts.Transport.EffectiveSendTimeout(timeout)
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, endpoint.String(), bytes.NewReader(data))
	if err != nil {
		return mcperror.OperationFailed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if cctx.Err() != nil {
			return mcperror.Timeout("sse post", timeout)
		}
		return mcperror.InvalidState(fmt.Sprintf("POST failed to %s: %v", endpoint.String(), err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mcperror.InvalidState(fmt.Sprintf("POST failed to %s: status %d", endpoint.String(), resp.StatusCode))
	}
	return nil
}

var _ transport.Transport = (*Transport)(nil)
