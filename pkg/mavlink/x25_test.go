package mavlink

import "testing"

func TestX25CheckValue(t *testing.T) {
	// CRC-16/MCRF4XX check value for the standard test vector.
	c := NewX25()
	c.WriteString("123456789")
	if got := c.Sum16(); got != 0x6f91 {
		t.Fatalf("check value = 0x%04x, want 0x6f91", got)
	}
}

func TestX25EmptyIsSeed(t *testing.T) {
	if got := NewX25().Sum16(); got != 0xffff {
		t.Fatalf("empty sum = 0x%04x, want 0xffff", got)
	}
}

func TestX25WriteMatchesWriteByte(t *testing.T) {
	data := []byte{0x00, 0x01, 0xfe, 0xfd, 0x7f, 0x80, 0xff}
	a := NewX25()
	a.Write(data)
	b := NewX25()
	for _, x := range data {
		b.WriteByte(x)
	}
	if a.Sum16() != b.Sum16() {
		t.Fatalf("Write = 0x%04x, WriteByte loop = 0x%04x", a.Sum16(), b.Sum16())
	}
}
