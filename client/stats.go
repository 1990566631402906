package client

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is the additive per-client instrumentation SPEC_FULL.md §3
// adds from Distributer.cpp's m_outstandingRequests tracking and
// round-trip histogram: outstanding count, bytes sent/received, and a
// per-host round-trip min/max/avg, surfaced through the Prometheus
// collector in internal/metrics.
type Stats struct {
	outstanding atomic.Int64
	bytesSent   atomic.Int64
	bytesRecv   atomic.Int64
	reconnects  atomic.Int64

	mu      sync.Mutex
	perHost map[int32]*hostRoundTrip
}

type hostRoundTrip struct {
	count int64
	min   time.Duration
	max   time.Duration
	total time.Duration
}

// NewStats returns a zeroed Stats ready for use.
func NewStats() *Stats {
	return &Stats{perHost: make(map[int32]*hostRoundTrip)}
}

// Outstanding returns the current number of in-flight invocations.
func (s *Stats) Outstanding() int64 { return s.outstanding.Load() }

// BytesSent returns the cumulative number of request bytes written.
func (s *Stats) BytesSent() int64 { return s.bytesSent.Load() }

// BytesReceived returns the received-bytes counter. Nothing in Client
// adds to it (only request bytes are counted), so it reads 0.
func (s *Stats) BytesReceived() int64 { return s.bytesRecv.Load() }

// Reconnects returns the cumulative number of successful reconnects.
func (s *Stats) Reconnects() int64 { return s.reconnects.Load() }

func (s *Stats) incOutstanding()        { s.outstanding.Add(1) }
func (s *Stats) decOutstanding()        { s.outstanding.Add(-1) }
func (s *Stats) addBytesSent(n int)     { s.bytesSent.Add(int64(n)) }
func (s *Stats) addBytesReceived(n int) { s.bytesRecv.Add(int64(n)) }
func (s *Stats) incReconnects()         { s.reconnects.Add(1) }

// recordRoundTrip folds one completed invocation's latency into the
// per-host min/max/avg.
func (s *Stats) recordRoundTrip(hostID int32, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.perHost[hostID]
	if !ok {
		rt = &hostRoundTrip{min: d, max: d}
		s.perHost[hostID] = rt
	}
	if d < rt.min {
		rt.min = d
	}
	if d > rt.max {
		rt.max = d
	}
	rt.total += d
	rt.count++
}

// RoundTrip returns the observed min/max/avg latency for hostID, or
// ok=false if no invocation against that host has completed yet.
func (s *Stats) RoundTrip(hostID int32) (min, max, avg time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, present := s.perHost[hostID]
	if !present || rt.count == 0 {
		return 0, 0, 0, false
	}
	return rt.min, rt.max, rt.total / time.Duration(rt.count), true
}
