// file: internal/metrics/metrics_test.go
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRegistryRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.IncRequests("conn-1", "tools/call", OutcomeSuccess)
	r.IncRequests("conn-1", "tools/call", OutcomeTimeout)
	r.SetPendingRequests("conn-1", 2)
	r.SetConnectionStatus("conn-1", 2)
	r.IncNotifications("conn-1", "notifications/progress")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found map[string]*dto.MetricFamily = make(map[string]*dto.MetricFamily)
	for _, f := range families {
		found[f.GetName()] = f
	}

	require.Contains(t, found, "mcpclient_requests_total")
	require.Contains(t, found, "mcpclient_pending_requests")
	require.Contains(t, found, "mcpclient_connection_status")
	require.Contains(t, found, "mcpclient_notifications_total")
}

func TestNoopRecorderDoesNotPanic(t *testing.T) {
	r := NewNoop()
	r.SetPendingRequests("x", 1)
	r.IncRequests("x", "ping", OutcomeSuccess)
	r.IncNotifications("x", "notifications/progress")
	r.SetConnectionStatus("x", 1)
}
