package stats

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestRegistryCreatesOnFirstUse(t *testing.T) {
	r := NewRegistry()
	a := r.Endpoint("a")
	if a == nil {
		t.Fatal("nil endpoint counters")
	}
	if r.Endpoint("a") != a {
		t.Fatal("second lookup returned a different instance")
	}
}

func TestSnapshotValues(t *testing.T) {
	r := NewRegistry()
	r.Endpoint("a").RxFrames.Add(3)
	r.Endpoint("a").RxBytes.Add(42)
	r.Endpoint("b").TxDropped.Add(1)

	s := r.Snapshot()
	if s.TakenAtUnixMS == 0 {
		t.Fatal("snapshot timestamp missing")
	}
	if got := s.Endpoints["a"]; got.RxFrames != 3 || got.RxBytes != 42 {
		t.Fatalf("a = %+v", got)
	}
	if got := s.Endpoints["b"]; got.TxDropped != 1 {
		t.Fatalf("b = %+v", got)
	}

	// Snapshots are copies: later traffic must not alter them.
	r.Endpoint("a").RxFrames.Add(10)
	if s.Endpoints["a"].RxFrames != 3 {
		t.Fatal("snapshot mutated by later traffic")
	}
}

func TestServerAnswersWithSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Endpoint("serial0").RxFrames.Add(7)
	r.Endpoint("serial0").DecodeErrors.Add(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := Serve(ctx, "127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	b, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap Snapshot
	if err := cbor.Unmarshal(b, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := snap.Endpoints["serial0"]
	if got.RxFrames != 7 || got.DecodeErrors != 2 {
		t.Fatalf("serial0 = %+v", got)
	}
}

func TestServerStopsWithContext(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := Serve(ctx, "127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	addr := srv.Addr().String()
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return // listener gone
		}
		conn.Close()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("listener still accepting after context cancellation")
}
