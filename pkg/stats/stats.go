// Package stats keeps per-endpoint traffic counters and serves snapshots of
// them to local tooling.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Endpoint holds the counters for one endpoint. All fields are atomics so
// the pumps can bump them without coordination.
type Endpoint struct {
	RxBytes      atomic.Uint64
	RxFrames     atomic.Uint64
	TxFrames     atomic.Uint64
	DecodeErrors atomic.Uint64
	TxErrors     atomic.Uint64
	TxDropped    atomic.Uint64
}

// Counters is the plain-value form of Endpoint used in snapshots.
type Counters struct {
	RxBytes      uint64 `cbor:"rx_bytes"`
	RxFrames     uint64 `cbor:"rx_frames"`
	TxFrames     uint64 `cbor:"tx_frames"`
	DecodeErrors uint64 `cbor:"decode_errors"`
	TxErrors     uint64 `cbor:"tx_errors"`
	TxDropped    uint64 `cbor:"tx_dropped"`
}

// Snapshot is a point-in-time view of every endpoint's counters.
type Snapshot struct {
	TakenAtUnixMS int64               `cbor:"taken_at_unix_ms"`
	Endpoints     map[string]Counters `cbor:"endpoints"`
}

// Registry owns the counters for all endpoints.
type Registry struct {
	mu sync.RWMutex
	m  map[string]*Endpoint
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]*Endpoint)}
}

// Endpoint returns the counters for name, creating them on first use.
func (r *Registry) Endpoint(name string) *Endpoint {
	r.mu.RLock()
	e, ok := r.m[name]
	r.mu.RUnlock()
	if ok {
		return e
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.m[name]; ok {
		return e
	}
	e = &Endpoint{}
	r.m[name] = e
	return e
}

// Snapshot captures the current counter values.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{
		TakenAtUnixMS: time.Now().UnixMilli(),
		Endpoints:     make(map[string]Counters, len(r.m)),
	}
	for name, e := range r.m {
		s.Endpoints[name] = Counters{
			RxBytes:      e.RxBytes.Load(),
			RxFrames:     e.RxFrames.Load(),
			TxFrames:     e.TxFrames.Load(),
			DecodeErrors: e.DecodeErrors.Load(),
			TxErrors:     e.TxErrors.Load(),
			TxDropped:    e.TxDropped.Load(),
		}
	}
	return s
}
