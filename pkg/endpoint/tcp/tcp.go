// Package tcp implements stream links over TCP, in client (dial-out) and
// server (accept one peer) modes.
package tcp

import (
	"context"
	"net"
	"sync"

	"mavroute/pkg/endpoint"
)

// Dialer establishes TCP links. In server mode the listener is bound on the
// first Dial and each redial accepts the next inbound connection, which is
// how a dropped peer maps onto the endpoint's Degraded → Connecting cycle.
type Dialer struct {
	Address string
	Server  bool

	mu sync.Mutex
	ln net.Listener
}

func (d *Dialer) Kind() endpoint.Kind { return endpoint.KindTCP }

func (d *Dialer) Reconnectable() bool { return true }

func (d *Dialer) Dial(ctx context.Context) (endpoint.Link, error) {
	if d.Server {
		return d.accept(ctx)
	}
	var nd net.Dialer
	c, err := nd.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &link{c: c}, nil
}

func (d *Dialer) accept(ctx context.Context) (endpoint.Link, error) {
	d.mu.Lock()
	if d.ln == nil {
		ln, err := net.Listen("tcp", d.Address)
		if err != nil {
			d.mu.Unlock()
			return nil, err
		}
		d.ln = ln
	}
	ln := d.ln
	d.mu.Unlock()

	// Unblock Accept when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-done:
		}
	}()

	c, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &link{c: c}, nil
}

type link struct {
	c net.Conn
}

func (l *link) Read(p []byte) (int, error) { return l.c.Read(p) }

func (l *link) Write(p []byte) error {
	_, err := l.c.Write(p)
	return err
}

func (l *link) Close() error { return l.c.Close() }
