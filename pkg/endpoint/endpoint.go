// Package endpoint models one configured transport connection participating
// in routing: the physical link, its bounded outbound queue with a
// per-endpoint overflow policy, and the
// Connecting → Active ⇄ Degraded → Closed lifecycle with reconnect backoff
// for stream links.
//
// Concrete links live in the tcp, udp, serial and mem sub-packages.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Kind identifies the transport type for policy decisions.
type Kind uint8

const (
	KindUDP Kind = iota
	KindTCP
	KindSerial
	KindMem
)

func (k Kind) String() string {
	switch k {
	case KindUDP:
		return "udp"
	case KindTCP:
		return "tcp"
	case KindSerial:
		return "serial"
	case KindMem:
		return "mem"
	default:
		return "unknown"
	}
}

// State is the endpoint lifecycle state.
type State uint32

const (
	StateConnecting State = iota
	StateActive
	StateDegraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by Read and Write after Close.
var ErrClosed = errors.New("endpoint: closed")

// Link is one established transport connection. Read blocks until data is
// available; datagram links yield exactly one datagram per call, stream links
// an arbitrary chunk. Write sends one whole encoded frame.
type Link interface {
	Read(p []byte) (int, error)
	Write(p []byte) error
	Close() error
}

// Dialer establishes Links. Stream dialers are redialed with backoff after
// a link failure; datagram dialers are dialed once and treat send errors as
// transient.
type Dialer interface {
	Kind() Kind
	Dial(ctx context.Context) (Link, error)
	Reconnectable() bool
}

// Config carries per-endpoint tunables resolved from configuration.
type Config struct {
	Name       string
	QueueDepth int
	Overflow   OverflowPolicy
	Backoff    Backoff
}

// DefaultQueueDepth bounds the outbound queue when configuration does not.
const DefaultQueueDepth = 64

// Endpoint is one routing participant. The router runs exactly one read pump
// and one write pump against it; Enqueue may be called from any pump.
type Endpoint struct {
	name   string
	dialer Dialer
	queue  *Queue
	boff   Backoff

	state atomic.Uint32

	mu   sync.Mutex
	link Link

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New builds an endpoint around dialer. The link is not established until
// Connect.
func New(cfg Config, dialer Dialer) *Endpoint {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	boff := cfg.Backoff
	if boff.Initial == 0 {
		boff = DefaultBackoff()
	}
	e := &Endpoint{
		name:   cfg.Name,
		dialer: dialer,
		queue:  NewQueue(depth, cfg.Overflow),
		boff:   boff,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	e.state.Store(uint32(StateConnecting))
	return e
}

func (e *Endpoint) Name() string { return e.name }
func (e *Endpoint) Kind() Kind   { return e.dialer.Kind() }
func (e *Endpoint) State() State { return State(e.state.Load()) }

// QueueDropped returns how many outbound buffers this endpoint has evicted.
func (e *Endpoint) QueueDropped() uint64 { return e.queue.Dropped() }

// Connect establishes the initial link. A failure here is a startup error;
// reconnection only applies to links that were up once.
func (e *Endpoint) Connect(ctx context.Context) error {
	link, err := e.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("endpoint %s: %w", e.name, err)
	}
	e.mu.Lock()
	e.link = link
	e.mu.Unlock()
	e.state.Store(uint32(StateActive))
	zap.L().Info("endpoint up",
		zap.String("endpoint", e.name),
		zap.Stringer("kind", e.Kind()))
	return nil
}

// Read yields the next chunk of transport bytes. For reconnectable links a
// dead link degrades the endpoint and Read blocks through the reconnect
// cycle. Datagram links treat receive errors as per-packet and keep reading;
// Read returns an error only on Close, context cancellation, or when a
// non-reconnectable link's socket is itself gone.
func (e *Endpoint) Read(ctx context.Context, p []byte) (int, error) {
	for {
		if e.State() == StateClosed {
			return 0, ErrClosed
		}
		link := e.currentLink()
		if link == nil {
			if err := e.reconnect(ctx); err != nil {
				return 0, err
			}
			continue
		}
		n, err := link.Read(p)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if e.State() == StateClosed {
			return 0, ErrClosed
		}
		if !e.dialer.Reconnectable() {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return 0, err
			}
			// ICMP unreachable surfaces as a receive error on a connected
			// UDP socket; the socket itself is still usable.
			zap.L().Debug("transient receive error",
				zap.String("endpoint", e.name),
				zap.Error(err))
			continue
		}
		e.fail(err)
	}
}

// Write sends one encoded frame on the current link. Stream-link failures
// degrade the endpoint (the read pump drives reconnection); datagram send
// errors are reported but leave the endpoint active.
func (e *Endpoint) Write(p []byte) error {
	if e.State() == StateClosed {
		return ErrClosed
	}
	link := e.currentLink()
	if link == nil {
		return fmt.Errorf("endpoint %s: link down", e.name)
	}
	err := link.Write(p)
	if err != nil && e.dialer.Reconnectable() && e.State() != StateClosed {
		e.fail(err)
	}
	return err
}

// Enqueue appends an encoded frame to the outbound queue under the
// endpoint's overflow policy.
func (e *Endpoint) Enqueue(b []byte) (ok, evicted bool) {
	return e.queue.Push(b)
}

// Dequeue blocks for the next outbound frame; ok=false after Close once the
// queue is drained.
func (e *Endpoint) Dequeue() ([]byte, bool) {
	return e.queue.Pop()
}

// Close terminates the endpoint. Closed is terminal.
func (e *Endpoint) Close() {
	e.state.Store(uint32(StateClosed))
	e.queue.Close()
	e.mu.Lock()
	if e.link != nil {
		_ = e.link.Close()
		e.link = nil
	}
	e.mu.Unlock()
}

func (e *Endpoint) currentLink() Link {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.link
}

// fail tears down the current link and marks the endpoint degraded. Closing
// the link also unblocks a read pump stuck in Read.
func (e *Endpoint) fail(err error) {
	e.mu.Lock()
	if e.link != nil {
		_ = e.link.Close()
		e.link = nil
	}
	e.mu.Unlock()
	if e.State() != StateClosed {
		e.state.Store(uint32(StateDegraded))
	}
	zap.L().Warn("endpoint degraded",
		zap.String("endpoint", e.name),
		zap.Error(err))
}

// reconnect redials with exponential backoff until the link is up or ctx is
// done.
func (e *Endpoint) reconnect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if e.State() == StateClosed {
			return ErrClosed
		}
		e.state.Store(uint32(StateConnecting))
		link, err := e.dialer.Dial(ctx)
		if err == nil {
			e.mu.Lock()
			e.link = link
			e.mu.Unlock()
			e.state.Store(uint32(StateActive))
			zap.L().Info("endpoint reconnected",
				zap.String("endpoint", e.name),
				zap.Int("attempts", attempt))
			return nil
		}
		e.rngMu.Lock()
		delay := e.boff.Delay(attempt, e.rng)
		e.rngMu.Unlock()
		zap.L().Debug("reconnect failed",
			zap.String("endpoint", e.name),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
