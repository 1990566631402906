package conn

import (
	"sync"
	"time"

	"github.com/mickamy/voltgo/protocol"
)

// PendingRequest is an invocation that has been handed to a connection
// and is awaiting a response or a terminal connection event.
type PendingRequest struct {
	ClientToken int64
	Callback    func(*protocol.InvocationResponse, error)
	SubmitTime  time.Time
	ReadOnly    bool
	Deadline    time.Time // zero means no local deadline
}

// HasDeadline reports whether p carries a local read-only deadline.
func (p *PendingRequest) HasDeadline() bool { return p.ReadOnly && !p.Deadline.IsZero() }

// PendingTable is a connection-local map of in-flight requests keyed by
// client_token. It is owned by the connection's reactor goroutines;
// cross-thread submission happens before the entry is added.
type PendingTable struct {
	mu      sync.Mutex
	entries map[int64]*PendingRequest
}

// NewPendingTable creates an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[int64]*PendingRequest)}
}

// Add enrolls p. Callers must enroll before the request bytes reach the
// socket, per the pending-request invariant.
func (t *PendingTable) Add(p *PendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[p.ClientToken] = p
}

// Remove pops the entry for token, if any.
func (t *PendingTable) Remove(token int64) (*PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[token]
	if ok {
		delete(t.entries, token)
	}
	return p, ok
}

// Len reports the number of outstanding entries.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// DrainAll empties the table and returns every entry that was in it,
// in no particular order. Used when a connection is lost, so every
// entry gets exactly one synthetic terminal callback.
func (t *PendingTable) DrainAll() []*PendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*PendingRequest, 0, len(t.entries))
	for token, p := range t.entries {
		out = append(out, p)
		delete(t.entries, token)
	}
	return out
}

// ExpireDeadlines removes and returns every read-only entry whose
// deadline is at or before now. Non-read-only requests never expire
// locally, since the server may still be committing.
func (t *PendingTable) ExpireDeadlines(now time.Time) []*PendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*PendingRequest
	for token, p := range t.entries {
		if p.HasDeadline() && !p.Deadline.After(now) {
			out = append(out, p)
			delete(t.entries, token)
		}
	}
	return out
}
