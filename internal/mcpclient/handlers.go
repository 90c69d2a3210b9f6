// file: internal/mcpclient/handlers.go
package mcpclient

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
)

// handshake runs the initialize request/response exchange and the
// subsequent notifications/initialized, per the spec's §4.5.2.
func (e *Endpoint) handshake(ctx context.Context) error {
	req := mcptypes.InitializeRequest{
		ProtocolVersion: e.opts.ProtocolVersions[0],
		ClientInfo:      e.opts.ClientInfo,
		Capabilities:    e.clientCapabilities(),
	}

	id := e.nextID()
	payload, err := mcptypes.EncodeRequest(id, mcptypes.MethodInitialize, req)
	if err != nil {
		return mcperror.InternalErr(err.Error())
	}

	rec := e.pending.register(id, mcptypes.MethodInitialize, e.opts.ConnectTimeout)

	if err := e.transport.Send(ctx, payload, e.opts.ConnectTimeout); err != nil {
		e.pending.complete(id, nil, err)
		return err
	}

	var res pendingResult
	select {
	case res = <-rec.result:
	case <-ctx.Done():
		e.pending.complete(id, nil, mcperror.Timeout("initialize", e.opts.ConnectTimeout))
		return mcperror.Timeout("initialize", e.opts.ConnectTimeout)
	}
	if res.err != nil {
		return res.err
	}

	var result mcptypes.InitializeResult
	if err := mcptypes.DecodeResult(res.raw, &result); err != nil {
		return err
	}

	if !e.isSupportedVersion(result.ProtocolVersion) {
		return mcperror.InvalidRequestErr("version unsupported: " + result.ProtocolVersion)
	}

	e.mu.Lock()
	e.serverInfo = result.ServerInfo
	e.serverCaps = result.Capabilities
	e.mu.Unlock()

	initPayload, err := mcptypes.EncodeNotification(mcptypes.NotificationInitialized, nil)
	if err != nil {
		return mcperror.InternalErr(err.Error())
	}
	return e.transport.Send(ctx, initPayload, e.opts.SendTimeout)
}

func (e *Endpoint) isSupportedVersion(v string) bool {
	for _, supported := range e.opts.ProtocolVersions {
		if supported == v {
			return true
		}
	}
	return false
}

func (e *Endpoint) clientCapabilities() mcptypes.ClientCapabilities {
	var caps mcptypes.ClientCapabilities
	if len(e.opts.Roots) > 0 || e.opts.RootsProvider != nil {
		caps.Roots = &mcptypes.RootsCapability{ListChanged: e.opts.RootsListChanged}
	}
	if e.opts.SamplingHandler != nil {
		caps.Sampling = &mcptypes.SamplingCapability{}
	}
	return caps
}

// registerBuiltins installs the two mandatory server-initiated request
// handlers the spec names: roots/list is always available once roots
// are configured, sampling/createMessage only when a handler is set.
func (e *Endpoint) registerBuiltins() {
	e.RegisterHandler(mcptypes.MethodRootsList, func(_ context.Context, _ json.RawMessage) (interface{}, error) {
		return mcptypes.ListRootsResult{Roots: e.currentRoots()}, nil
	})

	if e.opts.SamplingHandler != nil {
		e.RegisterHandler(mcptypes.MethodSamplingCreateMessage, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
			var req mcptypes.CreateMessageRequest
			if err := mcptypes.DecodeParams(params, &req); err != nil {
				return nil, err
			}
			result, err := e.opts.SamplingHandler(ctx, req)
			if err != nil {
				return nil, mcperror.InternalErr(err.Error())
			}
			return result, nil
		})
	}
}

func (e *Endpoint) currentRoots() []mcptypes.Root {
	if e.opts.RootsProvider != nil {
		return e.opts.RootsProvider()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRoots
}

// SetRoots replaces the static roots list and, if the client
// advertised roots.listChanged and the set actually changed, emits
// notifications/roots/list_changed. Identity comparison per the
// spec's §4.5.8 dedup rule.
func (e *Endpoint) SetRoots(ctx context.Context, roots []mcptypes.Root) error {
	e.mu.Lock()
	changed := !rootsEqual(e.lastRoots, roots)
	e.lastRoots = append([]mcptypes.Root(nil), roots...)
	e.mu.Unlock()

	if !changed || !e.opts.RootsListChanged || e.State() != StateRunning {
		return nil
	}
	return e.Notify(ctx, mcptypes.NotificationRootsListChanged, nil)
}

func rootsEqual(a, b []mcptypes.Root) bool {
	return reflect.DeepEqual(a, b)
}

// checkCapability enforces the spec's §4.5.7 gating table before an
// outbound request is dispatched.
func (e *Endpoint) checkCapability(method string) error {
	required := mcptypes.RequiredCapability(method)
	if required == "" {
		return nil
	}

	e.mu.RLock()
	caps := e.serverCaps
	e.mu.RUnlock()

	switch required {
	case "prompts":
		if caps.Prompts == nil {
			return mcperror.InvalidRequestErr("server does not support prompts")
		}
	case "resources":
		if caps.Resources == nil {
			return mcperror.InvalidRequestErr("server does not support resources")
		}
	case "resources.subscribe":
		if caps.Resources == nil || !caps.Resources.Subscribe {
			return mcperror.InvalidRequestErr("server does not support resources.subscribe")
		}
	case "tools":
		if caps.Tools == nil {
			return mcperror.InvalidRequestErr("server does not support tools")
		}
	case "logging":
		if caps.Logging == nil {
			return mcperror.InvalidRequestErr("server does not support logging")
		}
	case "completions":
		if caps.Completions == nil {
			return mcperror.InvalidRequestErr("server does not support completions")
		}
	}
	return nil
}
