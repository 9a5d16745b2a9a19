// Package mem provides an in-memory datagram link connecting two endpoints
// inside one process. It exists for tests and local tooling.
package mem

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"mavroute/pkg/endpoint"
)

// ErrTimeout is returned by RecvTimeout when no datagram arrives in time.
var ErrTimeout = errors.New("mem: receive timeout")

// Conn is one side of a Pipe. Each Write delivers one datagram to the peer.
type Conn struct {
	rx chan []byte
	tx chan []byte

	closeOnce    sync.Once
	localClosed  chan struct{}
	remoteClosed chan struct{}
}

// Pipe returns two connected Conns.
func Pipe() (*Conn, *Conn) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	ca := make(chan struct{})
	cb := make(chan struct{})
	a := &Conn{rx: ba, tx: ab, localClosed: ca, remoteClosed: cb}
	b := &Conn{rx: ab, tx: ba, localClosed: cb, remoteClosed: ca}
	return a, b
}

// Read copies the next datagram into p, blocking until one arrives.
// Datagrams already in flight are still delivered after the peer closes.
func (c *Conn) Read(p []byte) (int, error) {
	select {
	case m := <-c.rx:
		return copy(p, m), nil
	default:
	}
	select {
	case m := <-c.rx:
		return copy(p, m), nil
	case <-c.localClosed:
		return 0, io.EOF
	case <-c.remoteClosed:
		return 0, io.EOF
	}
}

// Write sends one datagram to the peer.
func (c *Conn) Write(p []byte) error {
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case c.tx <- cp:
		return nil
	case <-c.localClosed:
		return io.ErrClosedPipe
	case <-c.remoteClosed:
		return io.ErrClosedPipe
	}
}

// Close shuts down this side; the peer's blocked Read returns io.EOF.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.localClosed) })
	return nil
}

// RecvTimeout waits up to d for the next datagram. Test helper.
func (c *Conn) RecvTimeout(d time.Duration) ([]byte, error) {
	select {
	case m := <-c.rx:
		return m, nil
	case <-time.After(d):
		return nil, ErrTimeout
	}
}

// Dialer hands out a pre-built Conn as the endpoint's link.
type Dialer struct {
	Conn *Conn
}

func (d *Dialer) Kind() endpoint.Kind { return endpoint.KindMem }

func (d *Dialer) Reconnectable() bool { return false }

func (d *Dialer) Dial(_ context.Context) (endpoint.Link, error) {
	if d.Conn == nil {
		return nil, errors.New("mem: dialer has no conn")
	}
	return d.Conn, nil
}
