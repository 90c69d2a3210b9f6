// file: internal/mcpclient/endpoint.go
package mcpclient

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dkoosis/mcpclient/internal/fsm"
	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
	"github.com/dkoosis/mcpclient/internal/metrics"
	"github.com/dkoosis/mcpclient/internal/middleware"
	"github.com/dkoosis/mcpclient/internal/transport"
)

// DefaultProtocolVersion is the version this client advertises and, by
// default, the only one it accepts from a server.
const DefaultProtocolVersion = "2024-11-05"

// SamplingHandler services a server-initiated sampling/createMessage
// request by running it through the host application's own model.
type SamplingHandler func(ctx context.Context, req mcptypes.CreateMessageRequest) (mcptypes.CreateMessageResult, error)

// RootsProvider computes the current roots list dynamically; when nil,
// Options.Roots is served as a static list instead.
type RootsProvider func() []mcptypes.Root

// RequestHandler services one server-initiated request method.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Options configures one Endpoint.
type Options struct {
	ClientInfo       mcptypes.Implementation
	Roots            []mcptypes.Root
	RootsProvider    RootsProvider
	RootsListChanged bool
	SamplingHandler  SamplingHandler

	// ProtocolVersions lists the versions this client accepts from a
	// server during handshake; defaults to {DefaultProtocolVersion}.
	ProtocolVersions []string

	// RequestIDFactory generates outbound request ids; defaults to
	// UUID-string generation via mcptypes.NewUUIDRequestID.
	RequestIDFactory func() mcptypes.RequestID

	// UseIntegerIDs switches id generation to a monotonically
	// increasing integer sequence instead of RequestIDFactory, for
	// servers that log/echo integer correlation ids more legibly.
	UseIntegerIDs bool

	SendTimeout    time.Duration
	ConnectTimeout time.Duration

	// Connection is this endpoint's label for logging and metrics.
	Connection string

	Logger  logging.Logger
	Metrics metrics.Recorder

	// Validator, when set, validates outgoing payloads before they are
	// written to the transport — the optional schema-validated
	// encoding path described in the spec's data model section.
	Validator *middleware.ValidationMiddleware
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = logging.GetNoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewNoop()
	}
	if len(o.ProtocolVersions) == 0 {
		o.ProtocolVersions = []string{DefaultProtocolVersion}
	}
	if o.RequestIDFactory == nil {
		o.RequestIDFactory = mcptypes.NewUUIDRequestID
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 30 * time.Second
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	if o.Connection == "" {
		o.Connection = "default"
	}
}

// Endpoint is the client-side MCP state machine: handshake, request
// correlation, capability gating, progress routing, and dispatch of
// server-initiated requests. One Endpoint owns exactly one Transport.
type Endpoint struct {
	opts   Options
	logger logging.Logger
	sm     fsm.FSM

	transport transport.Transport

	pending  *pendingTable
	progress *progressManager
	notifier *notifier

	handlersMu sync.RWMutex
	handlers   map[string]RequestHandler

	inboundHandler mcptypes.MessageHandler

	mu         sync.RWMutex
	serverInfo mcptypes.Implementation
	serverCaps mcptypes.ServerCapabilities
	lastRoots  []mcptypes.Root

	readerWG   sync.WaitGroup
	stopOnce   sync.Once
	idSeq      int64
	useIntIDs  bool
}

// NewEndpoint builds an Endpoint in StateDisconnected. It registers the
// mandatory roots/list built-in, and sampling/createMessage when
// Options.SamplingHandler is set.
func NewEndpoint(opts Options) (*Endpoint, error) {
	opts.setDefaults()
	logger := opts.Logger.WithField("component", "endpoint").WithField("connection", opts.Connection)

	sm, err := buildStateMachine(logger)
	if err != nil {
		return nil, err
	}

	e := &Endpoint{
		opts:     opts,
		logger:   logger,
		sm:       sm,
		pending:  newPendingTable(),
		progress: newProgressManager(),
		notifier: newNotifier(),
		handlers:  make(map[string]RequestHandler),
		lastRoots: append([]mcptypes.Root(nil), opts.Roots...),
		useIntIDs: opts.UseIntegerIDs,
	}
	if opts.Validator != nil {
		e.inboundHandler = middleware.NewChain(e.acceptInboundFrame).Use(opts.Validator.Inbound).Handler()
	}
	e.registerBuiltins()
	return e, nil
}

// acceptInboundFrame is the terminal handler of the inbound middleware
// chain: by the time it runs, raw has already passed schema validation
// (when a Validator is configured). It hands off to the ordinary
// dispatch logic and reports no further transformation.
func (e *Endpoint) acceptInboundFrame(_ context.Context, raw []byte) ([]byte, error) {
	e.processFrame(raw)
	return raw, nil
}

// RegisterHandler installs (or replaces) the handler for a
// server-initiated request method. Intended to be called before Start;
// safe to call any time since handlers are read under a lock.
func (e *Endpoint) RegisterHandler(method string, h RequestHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers[method] = h
}

// State returns the endpoint's current lifecycle state.
func (e *Endpoint) State() fsm.State {
	return e.sm.CurrentState()
}

// ServerInfo returns the server's self-reported identity, valid once
// Running.
func (e *Endpoint) ServerInfo() mcptypes.Implementation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.serverInfo
}

// ServerCapabilities returns the negotiated server capabilities, valid
// once Running.
func (e *Endpoint) ServerCapabilities() mcptypes.ServerCapabilities {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.serverCaps
}

// Notifications returns a channel of inbound notifications other than
// cancelled/progress, which the endpoint handles internally.
func (e *Endpoint) Notifications() <-chan Notification {
	return e.notifier.Subscribe()
}

// PendingRequests reports the number of requests awaiting a response.
func (e *Endpoint) PendingRequests() int {
	return e.pending.len()
}

func (e *Endpoint) nextID() mcptypes.RequestID {
	if e.useIntIDs {
		return mcptypes.NewIntRequestID(atomicIncr(&e.idSeq))
	}
	return e.opts.RequestIDFactory()
}

func atomicIncr(p *int64) int64 {
	return atomic.AddInt64(p, 1)
}

// Start starts tr, performs the handshake, and transitions to Running
// on success. On any failure the endpoint transitions to Failed and
// the transport is stopped.
func (e *Endpoint) Start(ctx context.Context, tr transport.Transport) error {
	if err := e.sm.Transition(ctx, eventStart, nil); err != nil {
		return mcperror.InternalErr("endpoint already started")
	}
	e.transport = tr
	e.opts.Metrics.SetConnectionStatus(e.opts.Connection, 1)

	connectCtx, cancel := context.WithTimeout(ctx, e.opts.ConnectTimeout)
	defer cancel()

	if err := tr.Start(connectCtx); err != nil {
		_ = e.sm.Transition(ctx, eventTransportErr, err)
		e.opts.Metrics.SetConnectionStatus(e.opts.Connection, 3)
		return err
	}

	// The reader goroutine must be running, and subscribed to
	// tr.Messages(), before we wait on transport state: SSE only starts
	// its downchannel GET (and so only reaches StateConnected) once
	// Messages() is first called. Starting it any later deadlocks every
	// SSE connection until ConnectTimeout expires.
	e.readerWG.Add(1)
	go e.readLoop(tr)

	if err := e.awaitTransportConnected(connectCtx, tr); err != nil {
		_ = e.sm.Transition(ctx, eventTransportErr, err)
		e.opts.Metrics.SetConnectionStatus(e.opts.Connection, 3)
		_ = tr.Stop()
		e.readerWG.Wait()
		return err
	}

	if err := e.sm.Transition(ctx, eventTransportUp, nil); err != nil {
		return err
	}

	if err := e.handshake(connectCtx); err != nil {
		_ = e.sm.Transition(ctx, eventHandshakeErr, err)
		e.opts.Metrics.SetConnectionStatus(e.opts.Connection, 3)
		_ = tr.Stop()
		e.readerWG.Wait()
		return err
	}

	if err := e.sm.Transition(ctx, eventHandshakeOK, nil); err != nil {
		return err
	}
	e.opts.Metrics.SetConnectionStatus(e.opts.Connection, 2)
	e.logger.Info("endpoint running", "serverInfo", e.ServerInfo())
	return nil
}

// awaitTransportConnected blocks until tr reports Connected or Failed,
// or ctx expires. Stdio/mock transports are already Connected by the
// time Start returns; SSE only reaches Connected after its first
// Messages() subscription drives the GET, hence this wait.
func (e *Endpoint) awaitTransportConnected(ctx context.Context, tr transport.Transport) error {
	if tr.State() == transport.StateConnected {
		return nil
	}
	changes := tr.StateChanges()
	for {
		select {
		case s, ok := <-changes:
			if !ok {
				return mcperror.ConnectionFailed(nil)
			}
			if s == transport.StateConnected {
				return nil
			}
			if s == transport.StateFailed {
				return mcperror.ConnectionFailed(nil)
			}
		case <-ctx.Done():
			return mcperror.Timeout("transport connect", e.opts.ConnectTimeout)
		}
	}
}

// Stop tears the endpoint down: the reader loop exits, every pending
// request fails with ConnectionClosed, the notification stream closes,
// and the transport stops. Idempotent.
func (e *Endpoint) Stop() error {
	var stopErr error
	e.stopOnce.Do(func() {
		_ = e.sm.Transition(context.Background(), eventStop, nil)
		if e.transport != nil {
			stopErr = e.transport.Stop()
		}
		e.readerWG.Wait()
		e.pending.completeAll(mcperror.ConnectionClosedErr(nil))
		e.notifier.closeAll()
		e.opts.Metrics.SetConnectionStatus(e.opts.Connection, 0)
	})
	return stopErr
}

// Send issues method with params, suspending until the response
// resolves (success, error, timeout, cancel, or teardown) or ctx is
// cancelled (local cancel). progressHandler may be nil.
func (e *Endpoint) Send(ctx context.Context, method string, params interface{}, progressHandler ProgressHandler) (json.RawMessage, error) {
	if e.State() != StateRunning {
		return nil, mcperror.InternalErr("not running")
	}
	if err := e.checkCapability(method); err != nil {
		return nil, err
	}

	id := e.nextID()

	paramsJSON, err := marshalParams(params)
	if err != nil {
		return nil, mcperror.InternalErr(err.Error())
	}
	if progressHandler != nil {
		paramsJSON, err = withProgressToken(paramsJSON, id)
		if err != nil {
			return nil, mcperror.InternalErr(err.Error())
		}
		e.progress.register(id, progressHandler)
	}

	payload, err := mcptypes.EncodeRequest(id, method, json.RawMessage(paramsJSON))
	if err != nil {
		return nil, mcperror.InternalErr(err.Error())
	}
	if e.opts.Validator != nil {
		if err := e.opts.Validator.ValidateOutgoing(ctx, payload); err != nil {
			return nil, err
		}
	}

	rec := e.pending.register(id, method, e.opts.SendTimeout)
	e.opts.Metrics.SetPendingRequests(e.opts.Connection, e.pending.len())

	if err := e.transport.Send(ctx, payload, e.opts.SendTimeout); err != nil {
		e.pending.complete(id, nil, err)
		e.progress.unregister(id)
		e.opts.Metrics.IncRequests(e.opts.Connection, method, metrics.OutcomeError)
		return nil, err
	}

	select {
	case res := <-rec.result:
		e.progress.unregister(id)
		e.opts.Metrics.SetPendingRequests(e.opts.Connection, e.pending.len())
		e.recordOutcome(method, res.err)
		return res.raw, res.err
	case <-ctx.Done():
		e.cancelLocal(id, method, "context cancelled")
		e.progress.unregister(id)
		e.opts.Metrics.IncRequests(e.opts.Connection, method, metrics.OutcomeCancelled)
		return nil, mcperror.CancelledErr("context cancelled")
	}
}

func (e *Endpoint) recordOutcome(method string, err error) {
	switch {
	case err == nil:
		e.opts.Metrics.IncRequests(e.opts.Connection, method, metrics.OutcomeSuccess)
	case mcperror.IsTimeout(err):
		e.opts.Metrics.IncRequests(e.opts.Connection, method, metrics.OutcomeTimeout)
	default:
		e.opts.Metrics.IncRequests(e.opts.Connection, method, metrics.OutcomeError)
	}
}

// cancelLocal completes the pending record (if still present) and
// emits a best-effort notifications/cancelled.
func (e *Endpoint) cancelLocal(id mcptypes.RequestID, method, reason string) {
	e.pending.complete(id, nil, mcperror.CancelledErr(reason))

	params := map[string]interface{}{"requestId": id, "reason": reason}
	payload, err := mcptypes.EncodeNotification(mcptypes.NotificationCancelled, params)
	if err != nil {
		return
	}
	_ = e.transport.Send(context.Background(), payload, e.opts.SendTimeout)
}

// Notify sends a fire-and-forget notification to the server.
func (e *Endpoint) Notify(ctx context.Context, method string, params interface{}) error {
	if e.State() != StateRunning {
		return mcperror.InternalErr("not running")
	}
	payload, err := mcptypes.EncodeNotification(method, params)
	if err != nil {
		return mcperror.InternalErr(err.Error())
	}
	return e.transport.Send(ctx, payload, e.opts.SendTimeout)
}

func marshalParams(params interface{}) ([]byte, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}

// withProgressToken re-encodes params with _meta.progressToken set to
// id, serializing identically to the id itself per the spec.
func withProgressToken(paramsJSON []byte, id mcptypes.RequestID) ([]byte, error) {
	var obj map[string]interface{}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &obj); err != nil {
			return nil, err
		}
	}
	if obj == nil {
		obj = map[string]interface{}{}
	}
	meta, _ := obj["_meta"].(map[string]interface{})
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["progressToken"] = mcptypes.FromRequestID(id)
	obj["_meta"] = meta
	return json.Marshal(obj)
}

// newConnectionID returns a fresh UUID string for use as a readable
// per-connection label.
func newConnectionID() string {
	return uuid.NewString()
}
