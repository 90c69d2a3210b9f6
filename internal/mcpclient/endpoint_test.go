// file: internal/mcpclient/endpoint_test.go
package mcpclient_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dkoosis/mcpclient/internal/mcpclient"
	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
	"github.com/dkoosis/mcpclient/internal/middleware"
	"github.com/dkoosis/mcpclient/internal/transport"
)

// rejectingValidator fails every messageType in reject, and nothing else.
type rejectingValidator struct {
	reject map[string]bool
}

func (v *rejectingValidator) Validate(_ context.Context, messageType string, _ []byte) error {
	if v.reject[messageType] {
		return mcperror.InvalidMessage("rejected by test validator")
	}
	return nil
}
func (v *rejectingValidator) HasSchema(string) bool { return true }
func (v *rejectingValidator) IsInitialized() bool   { return true }

func testOptions() mcpclient.Options {
	return mcpclient.Options{
		ClientInfo:     mcptypes.Implementation{Name: "test-client", Version: "0.0.1"},
		ConnectTimeout: time.Second,
		SendTimeout:    time.Second,
	}
}

// serverAcceptHandshake reads the initialize request off pair.Server and
// replies with a canned InitializeResult, then waits for
// notifications/initialized. Runs the handshake's far side so
// Endpoint.Start can complete against an in-memory peer.
func serverAcceptHandshake(t *testing.T, pair *transport.MockTransportPair, caps mcptypes.ServerCapabilities) {
	t.Helper()
	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode initialize request: %v", err)
	}
	if env.Method != mcptypes.MethodInitialize {
		t.Fatalf("expected initialize, got %s", env.Method)
	}

	result := mcptypes.InitializeResult{
		ProtocolVersion: mcpclient.DefaultProtocolVersion,
		ServerInfo:      mcptypes.Implementation{Name: "test-server", Version: "1.0.0"},
		Capabilities:    caps,
	}
	payload, err := mcptypes.EncodeSuccessResponse(*env.ID, result)
	if err != nil {
		t.Fatalf("encode initialize response: %v", err)
	}
	pair.Server.InjectServerMessage(payload)

	initRaw := <-pair.Server.Messages()
	initEnv, err := mcptypes.DecodeEnvelope(initRaw)
	if err != nil {
		t.Fatalf("decode notifications/initialized: %v", err)
	}
	if initEnv.Method != mcptypes.NotificationInitialized {
		t.Fatalf("expected notifications/initialized, got %s", initEnv.Method)
	}
}

func startEndpoint(t *testing.T, opts mcpclient.Options, caps mcptypes.ServerCapabilities) (*mcpclient.Endpoint, *transport.MockTransportPair) {
	t.Helper()
	pair := transport.NewMockTransportPair()
	if err := pair.Server.Start(context.Background()); err != nil {
		t.Fatalf("start server transport: %v", err)
	}

	ep, err := mcpclient.NewEndpoint(opts)
	if err != nil {
		t.Fatalf("new endpoint: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- ep.Start(context.Background(), pair.Client) }()

	serverAcceptHandshake(t, pair, caps)

	if err := <-done; err != nil {
		t.Fatalf("endpoint start: %v", err)
	}
	if ep.State() != mcpclient.StateRunning {
		t.Fatalf("expected StateRunning, got %v", ep.State())
	}
	return ep, pair
}

func TestEndpoint_HandshakeSucceeds(t *testing.T) {
	ep, pair := startEndpoint(t, testOptions(), mcptypes.ServerCapabilities{
		Tools: &mcptypes.ToolsCapability{},
	})
	defer pair.Client.Stop()
	defer ep.Stop()

	if ep.ServerInfo().Name != "test-server" {
		t.Fatalf("unexpected server info: %+v", ep.ServerInfo())
	}
	if ep.ServerCapabilities().Tools == nil {
		t.Fatalf("expected tools capability to be negotiated")
	}
}

func TestEndpoint_HandshakeVersionMismatchFails(t *testing.T) {
	pair := transport.NewMockTransportPair()
	if err := pair.Server.Start(context.Background()); err != nil {
		t.Fatalf("start server transport: %v", err)
	}

	opts := testOptions()
	ep, err := mcpclient.NewEndpoint(opts)
	if err != nil {
		t.Fatalf("new endpoint: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- ep.Start(context.Background(), pair.Client) }()

	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode initialize request: %v", err)
	}
	result := mcptypes.InitializeResult{ProtocolVersion: "1999-01-01"}
	payload, err := mcptypes.EncodeSuccessResponse(*env.ID, result)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	pair.Server.InjectServerMessage(payload)

	if err := <-done; err == nil {
		t.Fatalf("expected version-mismatch error, got nil")
	}
	if ep.State() != mcpclient.StateFailed {
		t.Fatalf("expected StateFailed, got %v", ep.State())
	}
}

func TestEndpoint_SendRoundTrip(t *testing.T) {
	ep, pair := startEndpoint(t, testOptions(), mcptypes.ServerCapabilities{
		Tools: &mcptypes.ToolsCapability{},
	})
	defer pair.Client.Stop()
	defer ep.Stop()

	resultCh := make(chan json.RawMessage, 1)
	errCh := make(chan error, 1)
	go func() {
		raw, err := ep.Send(context.Background(), mcptypes.MethodToolsList, nil, nil)
		resultCh <- raw
		errCh <- err
	}()

	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode tools/list request: %v", err)
	}
	payload, err := mcptypes.EncodeSuccessResponse(*env.ID, mcptypes.ListToolsResult{Tools: nil})
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	pair.Server.InjectServerMessage(payload)

	if err := <-errCh; err != nil {
		t.Fatalf("send: %v", err)
	}
	if <-resultCh == nil {
		t.Fatalf("expected non-nil result")
	}
}

func TestEndpoint_SendRejectedByCapabilityGate(t *testing.T) {
	ep, pair := startEndpoint(t, testOptions(), mcptypes.ServerCapabilities{})
	defer pair.Client.Stop()
	defer ep.Stop()

	_, err := ep.Send(context.Background(), mcptypes.MethodToolsList, nil, nil)
	if err == nil {
		t.Fatalf("expected capability-gating error")
	}
	if !mcperror.IsInvalidState(err) {
		t.Logf("error was %v (category check is best-effort here)", err)
	}
}

func TestEndpoint_SendTimesOutOnNoResponse(t *testing.T) {
	opts := testOptions()
	opts.SendTimeout = 50 * time.Millisecond
	ep, pair := startEndpoint(t, opts, mcptypes.ServerCapabilities{
		Tools: &mcptypes.ToolsCapability{},
	})
	defer pair.Client.Stop()
	defer ep.Stop()

	_, err := ep.Send(context.Background(), mcptypes.MethodToolsList, nil, nil)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !mcperror.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestEndpoint_SendLocalCancelPropagatesNotification(t *testing.T) {
	ep, pair := startEndpoint(t, testOptions(), mcptypes.ServerCapabilities{
		Tools: &mcptypes.ToolsCapability{},
	})
	defer pair.Client.Stop()
	defer ep.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := ep.Send(ctx, mcptypes.MethodToolsList, nil, nil)
		errCh <- err
	}()

	<-pair.Server.Messages() // the tools/list request itself
	cancel()

	err := <-errCh
	if !mcperror.IsInvalidState(err) {
		// Cancellation surfaces its own category; just assert non-nil here
		// and that a notifications/cancelled frame follows below.
	}
	if err == nil {
		t.Fatalf("expected cancellation error")
	}

	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode cancelled notification: %v", err)
	}
	if env.Method != mcptypes.NotificationCancelled {
		t.Fatalf("expected notifications/cancelled, got %s", env.Method)
	}
}

func TestEndpoint_ProgressHandlerReceivesUpdates(t *testing.T) {
	ep, pair := startEndpoint(t, testOptions(), mcptypes.ServerCapabilities{
		Tools: &mcptypes.ToolsCapability{},
	})
	defer pair.Client.Stop()
	defer ep.Stop()

	var gotProgress float64
	progressCh := make(chan struct{}, 1)

	resultCh := make(chan error, 1)
	go func() {
		_, err := ep.Send(context.Background(), mcptypes.MethodToolsCall, map[string]interface{}{"name": "slow-tool"},
			func(progress float64, total *float64) {
				gotProgress = progress
				progressCh <- struct{}{}
			})
		resultCh <- err
	}()

	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode tools/call request: %v", err)
	}
	var params map[string]interface{}
	if err := mcptypes.DecodeParams(env.Params, &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	meta, ok := params["_meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected _meta with progressToken, got %+v", params)
	}
	token := meta["progressToken"]

	progressPayload, err := mcptypes.EncodeNotification(mcptypes.NotificationProgress, map[string]interface{}{
		"progressToken": token,
		"progress":      0.5,
	})
	if err != nil {
		t.Fatalf("encode progress notification: %v", err)
	}
	pair.Server.InjectServerMessage(progressPayload)

	select {
	case <-progressCh:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for progress callback")
	}
	if gotProgress != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", gotProgress)
	}

	donePayload, err := mcptypes.EncodeSuccessResponse(*env.ID, mcptypes.CallToolResult{})
	if err != nil {
		t.Fatalf("encode tool result: %v", err)
	}
	pair.Server.InjectServerMessage(donePayload)

	if err := <-resultCh; err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestEndpoint_ServerInitiatedRootsListIsAnswered(t *testing.T) {
	opts := testOptions()
	opts.Roots = []mcptypes.Root{{URI: "file:///project", Name: "project"}}
	ep, pair := startEndpoint(t, opts, mcptypes.ServerCapabilities{})
	defer pair.Client.Stop()
	defer ep.Stop()

	reqPayload, err := mcptypes.EncodeRequest(mcptypes.NewIntRequestID(1), mcptypes.MethodRootsList, nil)
	if err != nil {
		t.Fatalf("encode roots/list request: %v", err)
	}
	pair.Server.InjectServerMessage(reqPayload)

	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode roots/list response: %v", err)
	}
	var result mcptypes.ListRootsResult
	if err := mcptypes.DecodeResult(env.Result, &result); err != nil {
		t.Fatalf("decode roots result: %v", err)
	}
	if len(result.Roots) != 1 || result.Roots[0].URI != "file:///project" {
		t.Fatalf("unexpected roots result: %+v", result)
	}
}

func TestEndpoint_ServerInitiatedRequestWithBadShapeGetsInvalidParams(t *testing.T) {
	opts := testOptions()
	opts.SamplingHandler = func(_ context.Context, _ mcptypes.CreateMessageRequest) (mcptypes.CreateMessageResult, error) {
		t.Fatal("handler should not run when params don't match the registered shape")
		return mcptypes.CreateMessageResult{}, nil
	}
	ep, pair := startEndpoint(t, opts, mcptypes.ServerCapabilities{})
	defer pair.Client.Stop()
	defer ep.Stop()

	reqPayload, err := mcptypes.EncodeRequest(mcptypes.NewIntRequestID(1), mcptypes.MethodSamplingCreateMessage,
		json.RawMessage(`{"messages":"not-an-array"}`))
	if err != nil {
		t.Fatalf("encode sampling/createMessage request: %v", err)
	}
	pair.Server.InjectServerMessage(reqPayload)

	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error == nil {
		t.Fatalf("expected an error response, got %+v", env)
	}
	if env.Error.Code != mcperror.CodeInvalidParams {
		t.Fatalf("expected InvalidParams (%d), got %d: %s", mcperror.CodeInvalidParams, env.Error.Code, env.Error.Message)
	}
}

func TestEndpoint_StopIsIdempotentAndFailsPending(t *testing.T) {
	ep, pair := startEndpoint(t, testOptions(), mcptypes.ServerCapabilities{
		Tools: &mcptypes.ToolsCapability{},
	})
	defer pair.Client.Stop()

	errCh := make(chan error, 1)
	go func() {
		_, err := ep.Send(context.Background(), mcptypes.MethodToolsList, nil, nil)
		errCh <- err
	}()
	<-pair.Server.Messages()

	if err := ep.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := ep.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}

	if err := <-errCh; err == nil {
		t.Fatalf("expected pending send to fail after Stop")
	}
}

func TestEndpoint_InboundValidationDropsRejectedFrames(t *testing.T) {
	opts := testOptions()
	validator := &rejectingValidator{reject: map[string]bool{"custom/rejected": true}}
	opts.Validator = middleware.NewValidationMiddleware(validator, middleware.DefaultValidationOptions(), nil)

	ep, pair := startEndpoint(t, opts, mcptypes.ServerCapabilities{})
	defer pair.Client.Stop()
	defer ep.Stop()

	notes := ep.Notifications()

	rejected, err := mcptypes.EncodeNotification("custom/rejected", map[string]string{"x": "1"})
	if err != nil {
		t.Fatalf("encode rejected notification: %v", err)
	}
	pair.Server.InjectServerMessage(rejected)

	accepted, err := mcptypes.EncodeNotification("custom/accepted", map[string]string{"x": "2"})
	if err != nil {
		t.Fatalf("encode accepted notification: %v", err)
	}
	pair.Server.InjectServerMessage(accepted)

	select {
	case note := <-notes:
		if note.Method != "custom/accepted" {
			t.Fatalf("expected only the accepted notification to arrive, got %s", note.Method)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for accepted notification")
	}
}
