// Package metrics exposes the small Prometheus registry the endpoint
// and host update on every request completion and state transition.
// file: internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels the result of a completed request.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// Recorder is the interface the endpoint and host depend on, so a
// Noop implementation can stand in when no registry was configured.
type Recorder interface {
	SetPendingRequests(connection string, n int)
	IncRequests(connection, method string, outcome Outcome)
	IncNotifications(connection, method string)
	SetConnectionStatus(connection string, status int)
}

// Registry is the default prometheus-backed Recorder.
type Registry struct {
	pendingRequests    *prometheus.GaugeVec
	requestsTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	connectionStatus   *prometheus.GaugeVec
}

// NewRegistry constructs and registers the client's metrics on reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// clients in one process) or prometheus.DefaultRegisterer for the
// process-wide default.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		pendingRequests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcpclient_pending_requests",
			Help: "Number of requests awaiting a response, per connection.",
		}, []string{"connection"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpclient_requests_total",
			Help: "Total completed requests, by connection, method, and outcome.",
		}, []string{"connection", "method", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpclient_notifications_total",
			Help: "Total notifications received, by connection and method.",
		}, []string{"connection", "method"}),
		connectionStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcpclient_connection_status",
			Help: "Connection status: 0=disconnected 1=connecting 2=running 3=failed.",
		}, []string{"connection"}),
	}

	reg.MustRegister(r.pendingRequests, r.requestsTotal, r.notificationsTotal, r.connectionStatus)
	return r
}

func (r *Registry) SetPendingRequests(connection string, n int) {
	r.pendingRequests.WithLabelValues(connection).Set(float64(n))
}

func (r *Registry) IncRequests(connection, method string, outcome Outcome) {
	r.requestsTotal.WithLabelValues(connection, method, string(outcome)).Inc()
}

func (r *Registry) IncNotifications(connection, method string) {
	r.notificationsTotal.WithLabelValues(connection, method).Inc()
}

func (r *Registry) SetConnectionStatus(connection string, status int) {
	r.connectionStatus.WithLabelValues(connection).Set(float64(status))
}

// noop is a true no-op Recorder, the default when the caller doesn't
// configure a registry.
type noop struct{}

func (noop) SetPendingRequests(string, int)      {}
func (noop) IncRequests(string, string, Outcome) {}
func (noop) IncNotifications(string, string)     {}
func (noop) SetConnectionStatus(string, int)     {}

// NewNoop returns a Recorder that discards every update.
func NewNoop() Recorder { return noop{} }
