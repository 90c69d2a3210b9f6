// file: internal/mcpclient/pending.go
package mcpclient

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dkoosis/mcpclient/internal/mcperror"
	"github.com/dkoosis/mcpclient/internal/mcptypes"
)

// pendingResult is delivered to a pendingRecord's channel exactly once.
type pendingResult struct {
	raw json.RawMessage
	err error
}

// pendingRecord tracks one in-flight outbound request.
type pendingRecord struct {
	method string
	result chan pendingResult
	timer  *time.Timer
}

// pendingTable is the endpoint's id -> pendingRecord map. Only the
// endpoint's own goroutines mutate it; the reader loop completes
// records, callers register and await them.
type pendingTable struct {
	mu      sync.Mutex
	records map[mcptypes.RequestID]*pendingRecord
}

func newPendingTable() *pendingTable {
	return &pendingTable{records: make(map[mcptypes.RequestID]*pendingRecord)}
}

// register installs a record with a timeout timer that completes the
// record with RequestTimeoutErr(method) if nothing resolves it first.
func (p *pendingTable) register(id mcptypes.RequestID, method string, timeout time.Duration) *pendingRecord {
	rec := &pendingRecord{method: method, result: make(chan pendingResult, 1)}

	p.mu.Lock()
	p.records[id] = rec
	p.mu.Unlock()

	rec.timer = time.AfterFunc(timeout, func() {
		p.complete(id, nil, mcperror.RequestTimeoutErr(method))
	})
	return rec
}

// complete resolves the pending record for id, if one still exists.
// Returns false if the id was unknown (already completed, or never
// registered — e.g. a response for a cancelled/unknown request).
func (p *pendingTable) complete(id mcptypes.RequestID, raw json.RawMessage, err error) bool {
	p.mu.Lock()
	rec, ok := p.records[id]
	if ok {
		delete(p.records, id)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	rec.timer.Stop()
	rec.result <- pendingResult{raw: raw, err: err}
	return true
}

// completeAll resolves every outstanding record with the same terminal
// error, used on connection teardown.
func (p *pendingTable) completeAll(err error) {
	p.mu.Lock()
	records := p.records
	p.records = make(map[mcptypes.RequestID]*pendingRecord)
	p.mu.Unlock()

	for _, rec := range records {
		rec.timer.Stop()
		rec.result <- pendingResult{err: err}
	}
}

// len reports the number of requests currently awaiting a response,
// the value the endpoint publishes to metrics.SetPendingRequests.
func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}
