// file: internal/host/host_test.go
package host_test

import (
	"context"
	"testing"
	"time"

	"github.com/dkoosis/mcpclient/internal/host"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
	"github.com/dkoosis/mcpclient/internal/transport"
)

func connectWithCannedServer(t *testing.T, h *host.Host, id string, caps mcptypes.ServerCapabilities) *transport.MockTransportPair {
	t.Helper()
	pair := transport.NewMockTransportPair()
	if err := pair.Server.Start(context.Background()); err != nil {
		t.Fatalf("start server transport: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Connect(context.Background(), id, pair.Client, nil) }()

	raw := <-pair.Server.Messages()
	env, err := mcptypes.DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode initialize: %v", err)
	}
	result := mcptypes.InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo:      mcptypes.Implementation{Name: "srv-" + id, Version: "1.0"},
		Capabilities:    caps,
	}
	payload, err := mcptypes.EncodeSuccessResponse(*env.ID, result)
	if err != nil {
		t.Fatalf("encode initialize response: %v", err)
	}
	pair.Server.InjectServerMessage(payload)
	<-pair.Server.Messages() // notifications/initialized

	if caps.Tools != nil {
		raw := <-pair.Server.Messages()
		env, err := mcptypes.DecodeEnvelope(raw)
		if err != nil {
			t.Fatalf("decode tools/list: %v", err)
		}
		payload, err := mcptypes.EncodeSuccessResponse(*env.ID, mcptypes.ListToolsResult{
			Tools: []mcptypes.Tool{{Name: "echo"}},
		})
		if err != nil {
			t.Fatalf("encode tools/list response: %v", err)
		}
		pair.Server.InjectServerMessage(payload)
	}

	if err := <-done; err != nil {
		t.Fatalf("connect: %v", err)
	}
	return pair
}

func TestHost_ConnectPrimesToolsCache(t *testing.T) {
	h := host.New(host.Options{
		ClientInfo: mcptypes.Implementation{Name: "test", Version: "0.1"},
	})
	pair := connectWithCannedServer(t, h, "alpha", mcptypes.ServerCapabilities{
		Tools: &mcptypes.ToolsCapability{},
	})
	defer h.Disconnect("alpha")
	defer pair.Client.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		state, ok := h.ConnectionState("alpha")
		if ok && len(state.Tools) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected primed tools cache for alpha")
}

func TestHost_AvailableToolsAggregatesAcrossConnections(t *testing.T) {
	h := host.New(host.Options{
		ClientInfo: mcptypes.Implementation{Name: "test", Version: "0.1"},
	})
	pairA := connectWithCannedServer(t, h, "alpha", mcptypes.ServerCapabilities{Tools: &mcptypes.ToolsCapability{}})
	pairB := connectWithCannedServer(t, h, "beta", mcptypes.ServerCapabilities{Tools: &mcptypes.ToolsCapability{}})
	defer h.Disconnect("alpha")
	defer h.Disconnect("beta")
	defer pairA.Client.Stop()
	defer pairB.Client.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(h.AvailableTools()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	tools := h.AvailableTools()
	if len(tools) != 2 {
		t.Fatalf("expected 2 aggregated tools, got %d", len(tools))
	}
}

func TestHost_ConnectionsSupportingFiltersByCapability(t *testing.T) {
	h := host.New(host.Options{
		ClientInfo: mcptypes.Implementation{Name: "test", Version: "0.1"},
	})
	pairA := connectWithCannedServer(t, h, "alpha", mcptypes.ServerCapabilities{Tools: &mcptypes.ToolsCapability{}})
	pairB := connectWithCannedServer(t, h, "beta", mcptypes.ServerCapabilities{})
	defer h.Disconnect("alpha")
	defer h.Disconnect("beta")
	defer pairA.Client.Stop()
	defer pairB.Client.Stop()

	supporting := h.ConnectionsSupporting(host.FeatureTools)
	if len(supporting) != 1 || supporting[0] != "alpha" {
		t.Fatalf("expected only alpha to support tools, got %v", supporting)
	}
}

func TestHost_DisconnectRemovesConnection(t *testing.T) {
	h := host.New(host.Options{
		ClientInfo: mcptypes.Implementation{Name: "test", Version: "0.1"},
	})
	pair := connectWithCannedServer(t, h, "alpha", mcptypes.ServerCapabilities{})
	defer pair.Client.Stop()

	if err := h.Disconnect("alpha"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, ok := h.ConnectionState("alpha"); ok {
		t.Fatalf("expected alpha to be gone after disconnect")
	}
	if err := h.Disconnect("alpha"); err == nil {
		t.Fatalf("expected error disconnecting an already-removed connection")
	}
}

func TestHost_ConnectAllRunsConcurrently(t *testing.T) {
	h := host.New(host.Options{
		ClientInfo: mcptypes.Implementation{Name: "test", Version: "0.1"},
	})

	pairA := transport.NewMockTransportPair()
	pairB := transport.NewMockTransportPair()
	if err := pairA.Server.Start(context.Background()); err != nil {
		t.Fatalf("start server A: %v", err)
	}
	if err := pairB.Server.Start(context.Background()); err != nil {
		t.Fatalf("start server B: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- h.ConnectAll(context.Background(), []host.ConnectSpec{
			{ID: "alpha", Transport: pairA.Client},
			{ID: "beta", Transport: pairB.Client},
		})
	}()

	for _, pair := range []*transport.MockTransportPair{pairA, pairB} {
		raw := <-pair.Server.Messages()
		env, err := mcptypes.DecodeEnvelope(raw)
		if err != nil {
			t.Fatalf("decode initialize: %v", err)
		}
		payload, err := mcptypes.EncodeSuccessResponse(*env.ID, mcptypes.InitializeResult{
			ProtocolVersion: "2024-11-05",
		})
		if err != nil {
			t.Fatalf("encode response: %v", err)
		}
		pair.Server.InjectServerMessage(payload)
		<-pair.Server.Messages()
	}

	if err := <-done; err != nil {
		t.Fatalf("connect all: %v", err)
	}
	defer h.Disconnect("alpha")
	defer h.Disconnect("beta")
	defer pairA.Client.Stop()
	defer pairB.Client.Stop()

	if _, ok := h.ConnectionState("alpha"); !ok {
		t.Fatalf("expected alpha connected")
	}
	if _, ok := h.ConnectionState("beta"); !ok {
		t.Fatalf("expected beta connected")
	}
}
