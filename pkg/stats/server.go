package stats

import (
	"context"
	"net"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// Server answers each inbound TCP connection with one CBOR-encoded Snapshot
// and closes it. It is a local diagnostics surface, not part of the routed
// protocol.
type Server struct {
	reg *Registry
	ln  net.Listener
}

// Serve binds addr and starts answering until ctx ends.
func Serve(ctx context.Context, addr string, reg *Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{reg: reg, ln: ln}
	go s.acceptLoop()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	zap.L().Info("stats listener up", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

func (s *Server) acceptLoop() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.answer(c)
	}
}

func (s *Server) answer(c net.Conn) {
	defer c.Close()
	_ = c.SetWriteDeadline(time.Now().Add(5 * time.Second))
	b, err := cbor.Marshal(s.reg.Snapshot())
	if err != nil {
		zap.L().Error("stats snapshot encode failed", zap.Error(err))
		return
	}
	if _, err := c.Write(b); err != nil {
		zap.L().Debug("stats write failed", zap.Error(err))
	}
}
