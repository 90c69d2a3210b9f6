// Package host aggregates a named set of endpoints: it owns connection
// lifecycle, notification-driven cache refresh of each connection's
// tools/resources/prompts, and the capability/health queries the rest
// of an application runs across the whole fleet. One Host typically
// backs one process.
// file: internal/host/host.go
package host

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dkoosis/mcpclient/internal/logging"
	"github.com/dkoosis/mcpclient/internal/mcpclient"
	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
	"github.com/dkoosis/mcpclient/internal/metrics"
	"github.com/dkoosis/mcpclient/internal/middleware"
	"github.com/dkoosis/mcpclient/internal/transport"
)

// Status mirrors a connection's lifecycle coarsely enough for health
// queries; it tracks mcpclient.Endpoint's state machine one level up.
type Status int

const (
	StatusConnecting Status = iota
	StatusRunning
	StatusFailed
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusRunning:
		return "running"
	case StatusFailed:
		return "failed"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnectionState is the host-owned view of one connection: identity,
// negotiated capabilities, and the cached tools/resources/prompts lists
// that mirror (but do not replace) the server's own ground truth.
type ConnectionState struct {
	ID                 string
	ServerInfo         mcptypes.Implementation
	ServerCapabilities mcptypes.ServerCapabilities
	Status             Status
	LastActivity        time.Time

	Tools     []mcptypes.Tool
	Resources []mcptypes.Resource
	Prompts   []mcptypes.Prompt
}

// TransportFactory builds a fresh Transport for (re)connecting id. The
// host calls it from Connect and, when throttling allows, from
// Reconnect after a connection has failed.
type TransportFactory func() (transport.Transport, error)

// connection is the host's private bookkeeping for one entry; state is
// the copy callers see, everything below it is refresh/reconnect
// plumbing that never leaves the package.
type connection struct {
	mu    sync.RWMutex
	state ConnectionState

	endpoint   *mcpclient.Endpoint
	factory    TransportFactory
	cancelSub  context.CancelFunc
	limiter    *rate.Limiter

	refreshMu       sync.Mutex
	refreshingTools bool
	refreshingRes   bool
	refreshingProm  bool
}

// Options configures every endpoint the host creates. The host labels
// each endpoint with its connection id.
type Options struct {
	ClientInfo       mcptypes.Implementation
	Roots            []mcptypes.Root
	RootsProvider    mcpclient.RootsProvider
	RootsListChanged bool
	SamplingHandler  mcpclient.SamplingHandler
	ProtocolVersions []string
	UseIntegerIDs    bool
	SendTimeout      time.Duration
	ConnectTimeout   time.Duration
	Logger           logging.Logger
	Metrics          metrics.Recorder
	Validator        *middleware.ValidationMiddleware

	// ReconnectRateLimit and ReconnectBurst throttle Reconnect per
	// connection so a crashing child process or unreachable SSE
	// endpoint cannot busy-loop. Defaults: one attempt every 5s, burst 1.
	ReconnectRateLimit rate.Limit
	ReconnectBurst     int
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = logging.GetNoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewNoop()
	}
	if o.ReconnectRateLimit <= 0 {
		o.ReconnectRateLimit = rate.Every(5 * time.Second)
	}
	if o.ReconnectBurst <= 0 {
		o.ReconnectBurst = 1
	}
}

// Host owns a name -> connection map and the listeners refreshing each
// connection's cached capability lists.
type Host struct {
	opts   Options
	logger logging.Logger

	mu          sync.RWMutex
	connections map[string]*connection
}

// New builds an empty Host.
func New(opts Options) *Host {
	opts.setDefaults()
	return &Host{
		opts:        opts,
		logger:      opts.Logger.WithField("component", "host"),
		connections: make(map[string]*connection),
	}
}

func (h *Host) endpointOptions(id string) mcpclient.Options {
	return mcpclient.Options{
		ClientInfo:       h.opts.ClientInfo,
		Roots:            h.opts.Roots,
		RootsProvider:    h.opts.RootsProvider,
		RootsListChanged: h.opts.RootsListChanged,
		SamplingHandler:  h.opts.SamplingHandler,
		ProtocolVersions: h.opts.ProtocolVersions,
		UseIntegerIDs:    h.opts.UseIntegerIDs,
		SendTimeout:      h.opts.SendTimeout,
		ConnectTimeout:   h.opts.ConnectTimeout,
		Connection:       id,
		Logger:           h.opts.Logger,
		Metrics:          h.opts.Metrics,
		Validator:        h.opts.Validator,
	}
}

// Connect builds an endpoint for id, starts it against tr, and on
// success spawns the notification listener driving cache refresh.
// factory, if non-nil, is retained so a later Reconnect can rebuild the
// transport without the caller supplying one again.
func (h *Host) Connect(ctx context.Context, id string, tr transport.Transport, factory TransportFactory) error {
	h.mu.Lock()
	if _, exists := h.connections[id]; exists {
		h.mu.Unlock()
		return mcperror.InvalidState("connection " + id + " already exists")
	}
	conn := &connection{
		state:   ConnectionState{ID: id, Status: StatusConnecting},
		factory: factory,
		limiter: rate.NewLimiter(h.opts.ReconnectRateLimit, h.opts.ReconnectBurst),
	}
	h.connections[id] = conn
	h.mu.Unlock()

	ep, err := mcpclient.NewEndpoint(h.endpointOptions(id))
	if err != nil {
		h.markFailed(conn)
		return err
	}

	if err := ep.Start(ctx, tr); err != nil {
		h.markFailed(conn)
		return err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	conn.mu.Lock()
	conn.endpoint = ep
	conn.cancelSub = cancel
	conn.state.ServerInfo = ep.ServerInfo()
	conn.state.ServerCapabilities = ep.ServerCapabilities()
	conn.state.Status = StatusRunning
	conn.state.LastActivity = now()
	conn.mu.Unlock()

	go h.listen(subCtx, id, conn)

	h.primeCaches(ctx, id, conn)
	return nil
}

// ConnectSpec pairs a connection id with the transport to start it
// against, for batch connection via ConnectAll.
type ConnectSpec struct {
	ID        string
	Transport transport.Transport
	Factory   TransportFactory
}

// ConnectAll starts every spec concurrently via errgroup, waiting for
// all to finish rather than aborting siblings on the first failure —
// a per-connection failure lands in that connection's own state, not
// in the group's shared context.
func (h *Host) ConnectAll(ctx context.Context, specs []ConnectSpec) error {
	var g errgroup.Group
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			return h.Connect(ctx, spec.ID, spec.Transport, spec.Factory)
		})
	}
	return g.Wait()
}

func (h *Host) markFailed(conn *connection) {
	conn.mu.Lock()
	conn.state.Status = StatusFailed
	conn.mu.Unlock()
}

// Disconnect stops id's endpoint, cancels its cache-refresh listener,
// and removes the entry entirely.
func (h *Host) Disconnect(id string) error {
	h.mu.Lock()
	conn, ok := h.connections[id]
	if ok {
		delete(h.connections, id)
	}
	h.mu.Unlock()
	if !ok {
		return mcperror.InvalidState("no such connection: " + id)
	}

	conn.mu.RLock()
	ep := conn.endpoint
	cancel := conn.cancelSub
	conn.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if ep != nil {
		return ep.Stop()
	}
	return nil
}

// listen drains id's notification stream for its lifetime, refreshing
// caches and lastActivity as the spec's cache-invalidation table says.
func (h *Host) listen(ctx context.Context, id string, conn *connection) {
	notes := conn.endpoint.Notifications()
	for {
		select {
		case <-ctx.Done():
			return
		case note, ok := <-notes:
			if !ok {
				h.setStatus(conn, StatusDisconnected)
				return
			}
			h.touchActivity(conn)
			switch note.Method {
			case mcptypes.NotificationToolsListChanged:
				h.refreshTools(ctx, id, conn)
			case mcptypes.NotificationResourcesListChanged, mcptypes.NotificationResourcesUpdated:
				h.refreshResources(ctx, id, conn)
			case mcptypes.NotificationPromptsListChanged:
				h.refreshPrompts(ctx, id, conn)
			}
		}
	}
}

func (h *Host) setStatus(conn *connection, s Status) {
	conn.mu.Lock()
	conn.state.Status = s
	conn.mu.Unlock()
}

func (h *Host) touchActivity(conn *connection) {
	conn.mu.Lock()
	conn.state.LastActivity = now()
	conn.mu.Unlock()
}

// primeCaches runs the initial refresh for every capability the server
// advertised, so a freshly connected entry is populated without
// waiting on the server to emit a list_changed notification.
func (h *Host) primeCaches(ctx context.Context, id string, conn *connection) {
	conn.mu.RLock()
	caps := conn.state.ServerCapabilities
	conn.mu.RUnlock()

	if caps.Tools != nil {
		h.refreshTools(ctx, id, conn)
	}
	if caps.Resources != nil {
		h.refreshResources(ctx, id, conn)
	}
	if caps.Prompts != nil {
		h.refreshPrompts(ctx, id, conn)
	}
}

// refreshTools is a gated operation: it no-ops if the server doesn't
// advertise tools, the connection isn't running, or a refresh for this
// capability on this connection is already in flight.
func (h *Host) refreshTools(ctx context.Context, id string, conn *connection) {
	conn.mu.RLock()
	eligible := conn.state.ServerCapabilities.Tools != nil && conn.state.Status == StatusRunning
	ep := conn.endpoint
	conn.mu.RUnlock()
	if !eligible {
		return
	}

	conn.refreshMu.Lock()
	if conn.refreshingTools {
		conn.refreshMu.Unlock()
		return
	}
	conn.refreshingTools = true
	conn.refreshMu.Unlock()
	defer func() {
		conn.refreshMu.Lock()
		conn.refreshingTools = false
		conn.refreshMu.Unlock()
	}()

	raw, err := ep.Send(ctx, mcptypes.MethodToolsList, nil, nil)
	if err != nil {
		h.logger.Warn("tools/list refresh failed", "connection", id, "error", err)
		return
	}
	var result mcptypes.ListToolsResult
	if err := mcptypes.DecodeResult(raw, &result); err != nil {
		h.logger.Warn("tools/list decode failed", "connection", id, "error", err)
		return
	}

	conn.mu.Lock()
	conn.state.Tools = result.Tools
	conn.state.LastActivity = now()
	conn.mu.Unlock()
}

func (h *Host) refreshResources(ctx context.Context, id string, conn *connection) {
	conn.mu.RLock()
	eligible := conn.state.ServerCapabilities.Resources != nil && conn.state.Status == StatusRunning
	ep := conn.endpoint
	conn.mu.RUnlock()
	if !eligible {
		return
	}

	conn.refreshMu.Lock()
	if conn.refreshingRes {
		conn.refreshMu.Unlock()
		return
	}
	conn.refreshingRes = true
	conn.refreshMu.Unlock()
	defer func() {
		conn.refreshMu.Lock()
		conn.refreshingRes = false
		conn.refreshMu.Unlock()
	}()

	raw, err := ep.Send(ctx, mcptypes.MethodResourcesList, nil, nil)
	if err != nil {
		h.logger.Warn("resources/list refresh failed", "connection", id, "error", err)
		return
	}
	var result mcptypes.ListResourcesResult
	if err := mcptypes.DecodeResult(raw, &result); err != nil {
		h.logger.Warn("resources/list decode failed", "connection", id, "error", err)
		return
	}

	conn.mu.Lock()
	conn.state.Resources = result.Resources
	conn.state.LastActivity = now()
	conn.mu.Unlock()
}

func (h *Host) refreshPrompts(ctx context.Context, id string, conn *connection) {
	conn.mu.RLock()
	eligible := conn.state.ServerCapabilities.Prompts != nil && conn.state.Status == StatusRunning
	ep := conn.endpoint
	conn.mu.RUnlock()
	if !eligible {
		return
	}

	conn.refreshMu.Lock()
	if conn.refreshingProm {
		conn.refreshMu.Unlock()
		return
	}
	conn.refreshingProm = true
	conn.refreshMu.Unlock()
	defer func() {
		conn.refreshMu.Lock()
		conn.refreshingProm = false
		conn.refreshMu.Unlock()
	}()

	raw, err := ep.Send(ctx, mcptypes.MethodPromptsList, nil, nil)
	if err != nil {
		h.logger.Warn("prompts/list refresh failed", "connection", id, "error", err)
		return
	}
	var result mcptypes.ListPromptsResult
	if err := mcptypes.DecodeResult(raw, &result); err != nil {
		h.logger.Warn("prompts/list decode failed", "connection", id, "error", err)
		return
	}

	conn.mu.Lock()
	conn.state.Prompts = result.Prompts
	conn.state.LastActivity = now()
	conn.mu.Unlock()
}

// Reconnect rebuilds id's transport via its stored factory and restarts
// the endpoint, throttled by the connection's own rate limiter so a
// persistently failing peer cannot be busy-looped.
func (h *Host) Reconnect(ctx context.Context, id string) error {
	h.mu.RLock()
	conn, ok := h.connections[id]
	h.mu.RUnlock()
	if !ok {
		return mcperror.InvalidState("no such connection: " + id)
	}
	if !conn.limiter.Allow() {
		return mcperror.InvalidState("reconnect throttled for " + id)
	}

	conn.mu.RLock()
	factory := conn.factory
	oldEndpoint := conn.endpoint
	conn.mu.RUnlock()
	if factory == nil {
		return mcperror.NotSupported("connection " + id + " has no transport factory")
	}

	if oldEndpoint != nil {
		_ = oldEndpoint.Stop()
	}

	tr, err := factory()
	if err != nil {
		h.markFailed(conn)
		return err
	}

	ep, err := mcpclient.NewEndpoint(h.endpointOptions(id))
	if err != nil {
		h.markFailed(conn)
		return err
	}
	if err := ep.Start(ctx, tr); err != nil {
		h.markFailed(conn)
		return err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	conn.mu.Lock()
	if conn.cancelSub != nil {
		conn.cancelSub()
	}
	conn.endpoint = ep
	conn.cancelSub = cancel
	conn.state.ServerInfo = ep.ServerInfo()
	conn.state.ServerCapabilities = ep.ServerCapabilities()
	conn.state.Status = StatusRunning
	conn.state.LastActivity = now()
	conn.mu.Unlock()

	go h.listen(subCtx, id, conn)
	h.primeCaches(ctx, id, conn)
	return nil
}

// ConnectionIDs returns every connection id the host currently knows
// about, in no particular order.
func (h *Host) ConnectionIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionState returns a snapshot of id's state, or ok=false if no
// such connection exists.
func (h *Host) ConnectionState(id string) (ConnectionState, bool) {
	h.mu.RLock()
	conn, ok := h.connections[id]
	h.mu.RUnlock()
	if !ok {
		return ConnectionState{}, false
	}
	conn.mu.RLock()
	defer conn.mu.RUnlock()
	return conn.state, true
}

// Endpoint returns id's underlying endpoint for callers that need to
// issue requests directly (tools/call, resources/read, ...).
func (h *Host) Endpoint(id string) (*mcpclient.Endpoint, bool) {
	h.mu.RLock()
	conn, ok := h.connections[id]
	h.mu.RUnlock()
	if !ok {
		return nil, false
	}
	conn.mu.RLock()
	defer conn.mu.RUnlock()
	return conn.endpoint, conn.endpoint != nil
}

func (h *Host) snapshot() []ConnectionState {
	h.mu.RLock()
	conns := make([]*connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	states := make([]ConnectionState, 0, len(conns))
	for _, c := range conns {
		c.mu.RLock()
		states = append(states, c.state)
		c.mu.RUnlock()
	}
	return states
}

// AggregatedTool identifies one tool by the connection that offers it,
// for dedup by (connectionId, toolName) across the fleet.
type AggregatedTool struct {
	ConnectionID string
	Tool         mcptypes.Tool
}

// AvailableTools unions every connection's cached tools list.
func (h *Host) AvailableTools() []AggregatedTool {
	var out []AggregatedTool
	for _, state := range h.snapshot() {
		for _, t := range state.Tools {
			out = append(out, AggregatedTool{ConnectionID: state.ID, Tool: t})
		}
	}
	return out
}

// AggregatedResource identifies one resource by its owning connection.
type AggregatedResource struct {
	ConnectionID string
	Resource     mcptypes.Resource
}

// AvailableResources unions every connection's cached resources list.
func (h *Host) AvailableResources() []AggregatedResource {
	var out []AggregatedResource
	for _, state := range h.snapshot() {
		for _, r := range state.Resources {
			out = append(out, AggregatedResource{ConnectionID: state.ID, Resource: r})
		}
	}
	return out
}

// AggregatedPrompt identifies one prompt by its owning connection.
type AggregatedPrompt struct {
	ConnectionID string
	Prompt       mcptypes.Prompt
}

// AvailablePrompts unions every connection's cached prompts list.
func (h *Host) AvailablePrompts() []AggregatedPrompt {
	var out []AggregatedPrompt
	for _, state := range h.snapshot() {
		for _, p := range state.Prompts {
			out = append(out, AggregatedPrompt{ConnectionID: state.ID, Prompt: p})
		}
	}
	return out
}

// InactiveConnections returns ids whose lastActivity is older than
// timeout.
func (h *Host) InactiveConnections(timeout time.Duration) []string {
	var ids []string
	cutoff := now().Add(-timeout)
	for _, state := range h.snapshot() {
		if state.LastActivity.Before(cutoff) {
			ids = append(ids, state.ID)
		}
	}
	return ids
}

// FailedConnections returns ids currently in StatusFailed.
func (h *Host) FailedConnections() []string {
	var ids []string
	for _, state := range h.snapshot() {
		if state.Status == StatusFailed {
			ids = append(ids, state.ID)
		}
	}
	return ids
}

// Feature names a server capability family for ConnectionsSupporting,
// matching mcptypes.RequiredCapability's vocabulary.
type Feature string

const (
	FeatureTools     Feature = "tools"
	FeatureResources Feature = "resources"
	FeaturePrompts   Feature = "prompts"
	FeatureLogging   Feature = "logging"
)

// ConnectionsSupporting returns ids whose negotiated capabilities
// include feature.
func (h *Host) ConnectionsSupporting(feature Feature) []string {
	var ids []string
	for _, state := range h.snapshot() {
		var has bool
		switch feature {
		case FeatureTools:
			has = state.ServerCapabilities.Tools != nil
		case FeatureResources:
			has = state.ServerCapabilities.Resources != nil
		case FeaturePrompts:
			has = state.ServerCapabilities.Prompts != nil
		case FeatureLogging:
			has = state.ServerCapabilities.Logging != nil
		}
		if has {
			ids = append(ids, state.ID)
		}
	}
	return ids
}

// now is a seam so tests can be deterministic about lastActivity
// without the package reaching for time.Now() directly everywhere.
var now = time.Now
