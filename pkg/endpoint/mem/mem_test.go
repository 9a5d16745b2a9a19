package mem

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestPipeDelivery(t *testing.T) {
	a, b := Pipe()
	if err := a.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 8)
	n, err := b.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{1, 2, 3}) {
		t.Fatalf("read = %v", buf[:n])
	}
}

func TestWriteCopiesBuffer(t *testing.T) {
	a, b := Pipe()
	p := []byte{1, 2, 3}
	a.Write(p)
	p[0] = 99

	got, err := b.RecvTimeout(time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got[0] != 1 {
		t.Fatal("datagram aliases the caller's buffer")
	}
}

func TestCloseDrainsInFlight(t *testing.T) {
	a, b := Pipe()
	a.Write([]byte{1})
	a.Close()

	// The in-flight datagram is still delivered, then EOF.
	buf := make([]byte, 4)
	if _, err := b.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := b.Read(buf); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if err := b.Write([]byte{2}); err != io.ErrClosedPipe {
		t.Fatalf("write to closed peer = %v", err)
	}
}

func TestRecvTimeout(t *testing.T) {
	_, b := Pipe()
	if _, err := b.RecvTimeout(10 * time.Millisecond); err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
