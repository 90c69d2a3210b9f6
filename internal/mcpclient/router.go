// file: internal/mcpclient/router.go
package mcpclient

import (
	"context"
	"encoding/json"

	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
	"github.com/dkoosis/mcpclient/internal/transport"
)

// readLoop consumes tr.Messages() for the endpoint's lifetime. It ends
// when the channel closes, either because Stop() tore the transport
// down deliberately or because the transport failed on its own; the
// two are told apart by the endpoint's state at that point.
func (e *Endpoint) readLoop(tr transport.Transport) {
	defer e.readerWG.Done()

	for raw := range tr.Messages() {
		e.dispatchFrame(raw)
	}

	if e.State() != StateDisconnected {
		e.logger.Warn("transport closed unexpectedly")
		_ = e.sm.Transition(context.Background(), eventTransportErr, nil)
		e.opts.Metrics.SetConnectionStatus(e.opts.Connection, 3)
		e.pending.completeAll(mcperror.ConnectionClosedErr(nil))
		e.notifier.closeAll()
	}
}

// dispatchFrame routes raw through the inbound validation chain, when
// one is configured, before processFrame decodes and handles it; a
// frame that fails schema validation is logged and dropped rather than
// acted on.
func (e *Endpoint) dispatchFrame(raw []byte) {
	if e.inboundHandler != nil {
		if _, err := e.inboundHandler(context.Background(), raw); err != nil {
			e.logger.Debug("dropping inbound frame that failed schema validation", "error", err)
		}
		return
	}
	e.processFrame(raw)
}

func (e *Endpoint) processFrame(raw []byte) {
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		e.logger.Debug("dropping malformed inbound frame", "error", err)
		return
	}

	switch env.Classify() {
	case mcptypes.KindNotification:
		e.handleNotification(env)
	case mcptypes.KindSuccessResponse:
		e.pending.complete(*env.ID, env.Result, nil)
	case mcptypes.KindErrorResponse:
		e.pending.complete(*env.ID, nil, mcperror.ServerErr(env.Error.Code, env.Error.Message, env.Error.Data))
	case mcptypes.KindRequest:
		e.handleInboundRequest(env)
	}
}

func (e *Endpoint) handleNotification(env *mcptypes.Envelope) {
	switch env.Method {
	case mcptypes.NotificationCancelled:
		var params struct {
			RequestID mcptypes.RequestID `json:"requestId"`
			Reason    string             `json:"reason,omitempty"`
		}
		if err := mcptypes.DecodeParams(env.Params, &params); err != nil {
			e.logger.Debug("malformed cancelled notification", "error", err)
			return
		}
		e.pending.complete(params.RequestID, nil, mcperror.CancelledErr("cancelled by server"))
		e.progress.unregister(params.RequestID)

	case mcptypes.NotificationProgress:
		var params struct {
			ProgressToken mcptypes.RequestID `json:"progressToken"`
			Progress      float64            `json:"progress"`
			Total         *float64           `json:"total,omitempty"`
		}
		if err := mcptypes.DecodeParams(env.Params, &params); err != nil {
			e.logger.Debug("malformed progress notification", "error", err)
			return
		}
		e.progress.dispatch(params.ProgressToken, params.Progress, params.Total)

	default:
		e.opts.Metrics.IncNotifications(e.opts.Connection, env.Method)
		e.notifier.publish(Notification{Method: env.Method, Params: []byte(env.Params)})
	}
}

func (e *Endpoint) handleInboundRequest(env *mcptypes.Envelope) {
	ctx := context.Background()

	e.handlersMu.RLock()
	handler, ok := e.handlers[env.Method]
	e.handlersMu.RUnlock()

	if !ok {
		e.sendErrorResponse(ctx, *env.ID, mcperror.MethodNotFoundErr(env.Method))
		return
	}

	if shape, known := mcptypes.Shape(env.Method); known && shape.NewParams != nil {
		if err := mcptypes.DecodeParams(env.Params, shape.NewParams()); err != nil {
			e.sendErrorResponse(ctx, *env.ID, mcperror.InvalidParamsErr(
				"params do not match "+env.Method+"'s registered shape",
				map[string]interface{}{"method": env.Method}))
			return
		}
	}

	result, err := e.safeInvoke(ctx, handler, env.Params)
	if err != nil {
		e.sendErrorResponse(ctx, *env.ID, err)
		return
	}

	payload, err := mcptypes.EncodeSuccessResponse(*env.ID, result)
	if err != nil {
		e.sendErrorResponse(ctx, *env.ID, mcperror.InternalErr(err.Error()))
		return
	}
	_ = e.transport.Send(ctx, payload, e.opts.SendTimeout)
}

// safeInvoke recovers a panicking handler into an InternalError, per
// the spec's "handler exceptions become error responses" rule.
func (e *Endpoint) safeInvoke(ctx context.Context, handler RequestHandler, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("server-initiated request handler panicked", "panic", r)
			err = mcperror.InternalErr("handler panicked")
		}
	}()
	return handler(ctx, params)
}

func (e *Endpoint) sendErrorResponse(ctx context.Context, id mcptypes.RequestID, err error) {
	errMap := mcperror.ToJSONRPCErrorMap(err)
	wireErr := &mcptypes.WireError{
		Code:    errMap["code"].(int),
		Message: errMap["message"].(string),
	}
	if data, ok := errMap["data"]; ok {
		if b, marshalErr := json.Marshal(data); marshalErr == nil {
			wireErr.Data = b
		}
	}
	payload, encErr := mcptypes.EncodeErrorResponse(id, wireErr)
	if encErr != nil {
		e.logger.Error("failed to encode error response", "error", encErr)
		return
	}
	_ = e.transport.Send(ctx, payload, e.opts.SendTimeout)
}
