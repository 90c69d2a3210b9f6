// file: internal/mcpclient/progress.go
package mcpclient

import (
	"sync"

	"github.com/dkoosis/mcpclient/internal/mcptypes"
)

// ProgressHandler receives progress updates for one in-flight request.
// total is nil when the server did not report a denominator.
type ProgressHandler func(progress float64, total *float64)

// progressManager is a token -> handler table. Registration is bound
// to the owning request's lifetime: the endpoint unregisters on every
// completion path (success, error, timeout, cancel).
type progressManager struct {
	mu       sync.Mutex
	handlers map[mcptypes.RequestID]ProgressHandler
}

func newProgressManager() *progressManager {
	return &progressManager{handlers: make(map[mcptypes.RequestID]ProgressHandler)}
}

func (m *progressManager) register(token mcptypes.RequestID, h ProgressHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[token] = h
}

func (m *progressManager) unregister(token mcptypes.RequestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, token)
}

// dispatch calls the registered handler for token, if any. Unknown
// tokens (progress for a request that already completed, or that this
// endpoint never issued) are silently dropped, matching the spec's
// "must not block the router" requirement.
func (m *progressManager) dispatch(token mcptypes.RequestID, progress float64, total *float64) {
	m.mu.Lock()
	h := m.handlers[token]
	m.mu.Unlock()
	if h != nil {
		h(progress, total)
	}
}
