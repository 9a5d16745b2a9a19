// Package udp implements datagram links: client mode sends to one fixed
// remote, server mode binds a socket (joining multicast groups where the
// bind address is one), learns its remote peers from inbound traffic and
// fans outbound frames to every peer seen recently.
package udp

import (
	"context"
	"net"
	"sync"
	"time"

	"mavroute/pkg/endpoint"
)

// DefaultClientTTL is how long a server-mode link keeps sending to a remote
// peer that has gone silent.
const DefaultClientTTL = 30 * time.Second

// Dialer establishes UDP links. Datagram sockets are dialed once; send and
// receive errors are per-datagram and never degrade the endpoint.
type Dialer struct {
	Address string
	Server  bool

	// ClientTTL bounds the server-mode peer set; zero means
	// DefaultClientTTL.
	ClientTTL time.Duration
}

func (d *Dialer) Kind() endpoint.Kind { return endpoint.KindUDP }

func (d *Dialer) Reconnectable() bool { return false }

func (d *Dialer) Dial(_ context.Context) (endpoint.Link, error) {
	addr, err := net.ResolveUDPAddr("udp", d.Address)
	if err != nil {
		return nil, err
	}
	if !d.Server {
		c, err := net.DialUDP("udp", nil, addr)
		if err != nil {
			return nil, err
		}
		return &clientLink{c: c}, nil
	}

	var c *net.UDPConn
	if addr.IP != nil && addr.IP.IsMulticast() {
		c, err = net.ListenMulticastUDP("udp", nil, addr)
	} else {
		c, err = net.ListenUDP("udp", addr)
	}
	if err != nil {
		return nil, err
	}
	ttl := d.ClientTTL
	if ttl <= 0 {
		ttl = DefaultClientTTL
	}
	return &serverLink{c: c, ttl: ttl, peers: make(map[string]peer)}, nil
}

// clientLink is a connected socket with one fixed remote.
type clientLink struct {
	c *net.UDPConn
}

func (l *clientLink) Read(p []byte) (int, error) { return l.c.Read(p) }

func (l *clientLink) Write(p []byte) error {
	_, err := l.c.Write(p)
	return err
}

func (l *clientLink) Close() error { return l.c.Close() }

type peer struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

// serverLink is an unconnected socket shared by every remote peer that has
// sent to it. Reads feed the peer set; writes fan out to all live peers.
type serverLink struct {
	c   *net.UDPConn
	ttl time.Duration

	mu    sync.Mutex
	peers map[string]peer
}

func (l *serverLink) Read(p []byte) (int, error) {
	n, raddr, err := l.c.ReadFromUDP(p)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.peers[raddr.String()] = peer{addr: raddr, lastSeen: time.Now()}
	l.mu.Unlock()
	return n, nil
}

func (l *serverLink) Write(p []byte) error {
	now := time.Now()
	l.mu.Lock()
	addrs := make([]*net.UDPAddr, 0, len(l.peers))
	for key, pr := range l.peers {
		if now.Sub(pr.lastSeen) > l.ttl {
			delete(l.peers, key)
			continue
		}
		addrs = append(addrs, pr.addr)
	}
	l.mu.Unlock()

	var firstErr error
	for _, a := range addrs {
		if _, err := l.c.WriteToUDP(p, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *serverLink) Close() error { return l.c.Close() }
