// Package healthhttp is the host's optional operational side-door: a
// small gin router exposing per-connection health and the Prometheus
// registry, served by cmd/mcpclient's serve-health subcommand on its
// -http-addr address (default :8090). It is never required to exercise
// the protocol itself.
// file: internal/host/healthhttp/healthhttp.go
package healthhttp

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkoosis/mcpclient/internal/host"
)

// connectionView is the JSON shape returned by /healthz, one per
// connection the host currently knows about.
type connectionView struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"lastActivity"`
	ServerName   string    `json:"serverName,omitempty"`
	ToolCount    int       `json:"toolCount"`
	ResourceCount int      `json:"resourceCount"`
	PromptCount  int       `json:"promptCount"`
}

// NewRouter builds a gin.Engine exposing GET /healthz (per-connection
// status) and GET /metrics (reg's Prometheus handler). h is queried
// fresh on every request, never cached by this package.
func NewRouter(h *host.Host, reg *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", healthHandler(h))

	if reg != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return router
}

func healthHandler(h *host.Host) gin.HandlerFunc {
	return func(c *gin.Context) {
		views := make([]connectionView, 0)
		for _, id := range h.ConnectionIDs() {
			state, ok := h.ConnectionState(id)
			if !ok {
				continue
			}
			views = append(views, connectionView{
				ID:            state.ID,
				Status:        state.Status.String(),
				LastActivity:  state.LastActivity,
				ServerName:    state.ServerInfo.Name,
				ToolCount:     len(state.Tools),
				ResourceCount: len(state.Resources),
				PromptCount:   len(state.Prompts),
			})
		}
		c.JSON(http.StatusOK, gin.H{"connections": views})
	}
}
