// Package routing maintains the dynamic mapping from observed sender
// identities to the endpoint they last arrived on, and computes the
// destination set for each decoded frame.
package routing

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"mavroute/pkg/mavlink"
)

// DefaultTTL is how long an identity stays routable without fresh traffic.
const DefaultTTL = 30 * time.Second

type entry struct {
	endpoint string
	lastSeen time.Time
}

// Table maps (system, component) identities to the endpoint most recently
// observed carrying their traffic. It is the only mutable state shared
// between endpoint read pumps: reads dominate, writes happen once per
// received frame.
type Table struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	ids map[mavlink.SysCompID]entry
}

// NewTable returns a table expiring entries unseen for ttl.
// ttl <= 0 selects DefaultTTL.
func NewTable(ttl time.Duration) *Table {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Table{
		ttl: ttl,
		now: time.Now,
		ids: make(map[mavlink.SysCompID]entry),
	}
}

// TTL returns the configured entry lifetime.
func (t *Table) TTL() time.Duration { return t.ttl }

// Observe records that id was seen on endpoint, superseding any previous
// association. A newer observation from a different endpoint wins, which is
// what lets a vehicle fail over between links without reconfiguration.
func (t *Table) Observe(id mavlink.SysCompID, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, ok := t.ids[id]
	if ok && old.endpoint != endpoint {
		zap.L().Debug("identity moved",
			zap.String("id", id.String()),
			zap.String("from", old.endpoint),
			zap.String("to", endpoint))
	}
	t.ids[id] = entry{endpoint: endpoint, lastSeen: t.now()}
}

// Lookup returns the endpoint for an exact (system, component) identity.
// Entries past their TTL are treated as unknown.
func (t *Table) Lookup(id mavlink.SysCompID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.ids[id]
	if !ok || t.stale(e) {
		return "", false
	}
	return e.endpoint, true
}

// LookupSystem returns every endpoint carrying any live component of the
// given system id, deduplicated, in unspecified order.
func (t *Table) LookupSystem(sys uint8) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for id, e := range t.ids {
		if id.System != sys || t.stale(e) {
			continue
		}
		if _, dup := seen[e.endpoint]; dup {
			continue
		}
		seen[e.endpoint] = struct{}{}
		out = append(out, e.endpoint)
	}
	return out
}

// Prune removes expired entries and returns how many were dropped. The
// router calls this periodically; lookups already ignore stale entries, so
// pruning only bounds memory.
func (t *Table) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, e := range t.ids {
		if t.stale(e) {
			delete(t.ids, id)
			n++
		}
	}
	return n
}

// Len returns the number of entries, including not-yet-pruned stale ones.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

func (t *Table) stale(e entry) bool {
	return t.now().Sub(e.lastSeen) > t.ttl
}
