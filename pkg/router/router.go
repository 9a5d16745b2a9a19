// Package router is the concurrent engine that moves frames between
// endpoints: one read pump and one write pump per endpoint, a shared routing
// table, and the decision policy from pkg/routing in between. No central
// loop serializes endpoints; a backlogged link only ever stalls itself.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mavroute/pkg/dialect"
	"mavroute/pkg/endpoint"
	"mavroute/pkg/mavlink"
	"mavroute/pkg/routing"
	"mavroute/pkg/stats"
)

// readBufSize fits the largest UDP datagram an endpoint can hand us.
const readBufSize = 64 * 1024

// Router owns the endpoint set and the pumps.
type Router struct {
	dialect *dialect.Dialect
	table   *routing.Table
	reg     *stats.Registry

	eps    []*endpoint.Endpoint
	byName map[string]*endpoint.Endpoint
	names  []string

	wg sync.WaitGroup
}

// New builds a router around an immutable dialect and a routing table.
func New(d *dialect.Dialect, table *routing.Table, reg *stats.Registry) *Router {
	if reg == nil {
		reg = stats.NewRegistry()
	}
	return &Router{
		dialect: d,
		table:   table,
		reg:     reg,
		byName:  make(map[string]*endpoint.Endpoint),
	}
}

// Add registers an endpoint. All endpoints must be added before Start.
func (r *Router) Add(ep *endpoint.Endpoint) error {
	if _, dup := r.byName[ep.Name()]; dup {
		return fmt.Errorf("router: duplicate endpoint name %q", ep.Name())
	}
	r.byName[ep.Name()] = ep
	r.eps = append(r.eps, ep)
	r.names = append(r.names, ep.Name())
	return nil
}

// Start establishes every endpoint's initial link. Any failure here is a
// startup error: the caller should treat it as fatal and not run the router.
func (r *Router) Start(ctx context.Context) error {
	for _, ep := range r.eps {
		if err := ep.Connect(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the pumps and blocks until ctx ends, then shuts every endpoint
// down and waits for the pumps to drain. In-flight writes complete; nothing
// partial is ever flushed.
func (r *Router) Run(ctx context.Context) {
	for _, ep := range r.eps {
		r.wg.Add(2)
		go r.readPump(ctx, ep)
		go r.writePump(ep)
	}
	r.wg.Add(1)
	go r.pruneLoop(ctx)

	<-ctx.Done()
	zap.L().Info("router shutting down")
	for _, ep := range r.eps {
		ep.Close()
	}
	r.wg.Wait()
}

// readPump drives one endpoint: read, decode, learn, route, enqueue.
// Being the only goroutine decoding this endpoint is what guarantees
// per-source ordering all the way into the destination queues.
func (r *Router) readPump(ctx context.Context, ep *endpoint.Endpoint) {
	defer r.wg.Done()
	st := r.reg.Endpoint(ep.Name())
	dec := mavlink.NewDecoder(r.dialect)
	buf := make([]byte, readBufSize)

	for {
		n, err := ep.Read(ctx, buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, endpoint.ErrClosed) {
				zap.L().Warn("endpoint read failed",
					zap.String("endpoint", ep.Name()),
					zap.Error(err))
			}
			return
		}
		st.RxBytes.Add(uint64(n))
		dec.Write(buf[:n])
		for {
			f, err := dec.Next()
			if err != nil {
				st.DecodeErrors.Add(1)
				zap.L().Debug("decode failed",
					zap.String("endpoint", ep.Name()),
					zap.Error(err))
				continue
			}
			if f == nil {
				break
			}
			st.RxFrames.Add(1)
			r.dispatch(f, ep.Name())
		}
	}
}

// dispatch learns the sender and fans the frame out to its destinations.
// Every destination queue shares f.Raw; nobody mutates it downstream.
func (r *Router) dispatch(f *mavlink.Frame, origin string) {
	if f.Sender.Valid() {
		r.table.Observe(f.Sender, origin)
	} else {
		zap.L().Debug("wildcard sender not learned",
			zap.String("endpoint", origin),
			zap.Uint32("msg_id", f.ID))
	}

	for _, name := range routing.Destinations(r.table, r.dialect, f, origin, r.names) {
		_, evicted := r.byName[name].Enqueue(f.Raw)
		if evicted {
			r.reg.Endpoint(name).TxDropped.Add(1)
		}
	}
}

// writePump drains one endpoint's outbound queue onto its link.
func (r *Router) writePump(ep *endpoint.Endpoint) {
	defer r.wg.Done()
	st := r.reg.Endpoint(ep.Name())
	for {
		b, ok := ep.Dequeue()
		if !ok {
			return
		}
		if err := ep.Write(b); err != nil {
			if errors.Is(err, endpoint.ErrClosed) {
				return
			}
			st.TxErrors.Add(1)
			zap.L().Debug("endpoint write failed",
				zap.String("endpoint", ep.Name()),
				zap.Error(err))
			continue
		}
		st.TxFrames.Add(1)
	}
}

// pruneLoop expires stale routing-table entries at half the table's TTL.
func (r *Router) pruneLoop(ctx context.Context) {
	defer r.wg.Done()
	t := time.NewTicker(r.table.TTL() / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.table.Prune(); n > 0 {
				zap.L().Debug("pruned routing entries", zap.Int("count", n))
			}
		}
	}
}
