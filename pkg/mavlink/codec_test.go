package mavlink

import (
	"bytes"
	"testing"
)

var testSeeds = SeedMap{
	0:  50,
	42: 0xab,
	76: 152,
}

func decodeOne(t *testing.T, seeds SeedLookup, wire []byte) *Frame {
	t.Helper()
	dec := NewDecoder(seeds)
	dec.Write(wire)
	f, err := dec.Next()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f == nil {
		t.Fatal("decode: no frame from complete input")
	}
	return f
}

func TestRoundtripV1(t *testing.T) {
	in := &Frame{
		Version: V1,
		Seq:     7,
		Sender:  SysCompID{System: 1, Component: 1},
		ID:      42,
		Payload: []byte{1, 2, 3, 4},
	}
	wire, err := in.Encode(testSeeds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if wire[0] != MagicV1 {
		t.Fatalf("magic = 0x%02x", wire[0])
	}

	f := decodeOne(t, testSeeds, wire)
	if f.Version != V1 || f.Seq != 7 || f.ID != 42 {
		t.Fatalf("decoded header mismatch: %+v", f)
	}
	if f.Sender != (SysCompID{System: 1, Component: 1}) {
		t.Fatalf("sender = %v", f.Sender)
	}
	if !bytes.Equal(f.Payload, in.Payload) {
		t.Fatalf("payload = %v", f.Payload)
	}
	if !bytes.Equal(f.Raw, wire) {
		t.Fatal("raw differs from wire bytes")
	}
}

func TestRoundtripV2(t *testing.T) {
	in := &Frame{
		Version:     V2,
		CompatFlags: 3,
		Seq:         255,
		Sender:      SysCompID{System: 200, Component: 190},
		ID:          76,
		Payload:     []byte{9, 9, 9},
	}
	wire, err := in.Encode(testSeeds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f := decodeOne(t, testSeeds, wire)
	if f.Version != V2 || f.CompatFlags != 3 || f.Seq != 255 || f.ID != 76 {
		t.Fatalf("decoded header mismatch: %+v", f)
	}
	if f.Signed() {
		t.Fatal("unsigned frame reports Signed")
	}
	if !bytes.Equal(f.Payload, in.Payload) {
		t.Fatalf("payload = %v", f.Payload)
	}
}

func TestRoundtripV2Signed(t *testing.T) {
	sig := make([]byte, SignatureLen)
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	in := &Frame{
		Version:       V2,
		IncompatFlags: IncompatFlagSigned,
		Sender:        SysCompID{System: 1, Component: 1},
		ID:            42,
		Payload:       []byte{0x10},
		Signature:     sig,
	}
	wire, err := in.Encode(testSeeds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(wire) != 10+1+2+SignatureLen {
		t.Fatalf("wire len = %d", len(wire))
	}

	f := decodeOne(t, testSeeds, wire)
	if !f.Signed() {
		t.Fatal("signed frame not reported as signed")
	}
	if !bytes.Equal(f.Signature, sig) {
		t.Fatalf("signature = %v", f.Signature)
	}
}

func TestEncodeSignedRequiresTrailer(t *testing.T) {
	in := &Frame{
		Version:       V2,
		IncompatFlags: IncompatFlagSigned,
		Sender:        SysCompID{System: 1, Component: 1},
		ID:            42,
	}
	if _, err := in.Encode(testSeeds); err != ErrBadSignature {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestEncodeUnknownMessage(t *testing.T) {
	in := &Frame{Version: V2, ID: 9999}
	if _, err := in.Encode(testSeeds); err != ErrUnknownMessage {
		t.Fatalf("err = %v, want ErrUnknownMessage", err)
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	in := &Frame{Version: V2, ID: 42, Payload: make([]byte, MaxPayloadLen+1)}
	if _, err := in.Encode(testSeeds); err != ErrPayloadTooLarge {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	in := &Frame{
		Version: V2,
		Sender:  SysCompID{System: 5, Component: 5},
		ID:      76,
		Payload: []byte{1, 2, 3, 4, 5},
	}
	wire, err := in.Encode(testSeeds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := NewDecoder(testSeeds)
	for i, b := range wire {
		dec.Write([]byte{b})
		f, err := dec.Next()
		if err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
		if i < len(wire)-1 {
			if f != nil {
				t.Fatalf("frame complete after %d of %d bytes", i+1, len(wire))
			}
			continue
		}
		if f == nil {
			t.Fatal("no frame after final byte")
		}
		if !bytes.Equal(f.Raw, wire) {
			t.Fatal("reassembled frame differs")
		}
	}
	if dec.Buffered() != 0 {
		t.Fatalf("leftover bytes: %d", dec.Buffered())
	}
}

func TestDecoderResyncThroughGarbage(t *testing.T) {
	in := &Frame{
		Version: V1,
		Sender:  SysCompID{System: 1, Component: 1},
		ID:      42,
		Payload: []byte{0x11, 0x22},
	}
	wire, err := in.Encode(testSeeds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := NewDecoder(testSeeds)
	dec.Write([]byte{0x00, 0x13, 0x37, 0x00})
	dec.Write(wire)
	f, err := dec.Next()
	if err != nil {
		t.Fatalf("decode after garbage: %v", err)
	}
	if f == nil || f.ID != 42 {
		t.Fatalf("frame = %+v", f)
	}
}

func TestDecoderPureGarbage(t *testing.T) {
	dec := NewDecoder(testSeeds)
	dec.Write([]byte{0x01, 0x02, 0x03})
	if _, err := dec.Next(); err != ErrInvalidMagic {
		t.Fatalf("err = %v, want ErrInvalidMagic", err)
	}
	if dec.Buffered() != 0 {
		t.Fatal("garbage not discarded")
	}
}

func TestDecoderBadChecksum(t *testing.T) {
	good := &Frame{
		Version: V2,
		Sender:  SysCompID{System: 1, Component: 1},
		ID:      42,
		Payload: []byte{0x01, 0x02},
	}
	wire, err := good.Encode(testSeeds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	corrupt := append([]byte(nil), wire...)
	corrupt[len(corrupt)-1] ^= 0x01 // flip a checksum bit

	dec := NewDecoder(testSeeds)
	dec.Write(corrupt)

	if _, err := dec.Next(); err != ErrBadChecksum {
		t.Fatalf("err = %v, want ErrBadChecksum", err)
	}
	// The corrupt frame must be (at least partially) consumed so the caller
	// can keep calling Next without spinning on the same bytes.
	if dec.Buffered() >= len(corrupt) {
		t.Fatalf("no progress after checksum failure: %d buffered", dec.Buffered())
	}
}

func TestDecoderRejectsFlippedPayloadBits(t *testing.T) {
	good := &Frame{
		Version: V2,
		Sender:  SysCompID{System: 1, Component: 1},
		ID:      42,
		Payload: []byte{0x01, 0x02, 0x03, 0x04},
	}
	wire, err := good.Encode(testSeeds)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payloadStart := len(wire) - checksumLen - len(good.Payload)

	for i := payloadStart; i < payloadStart+len(good.Payload); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), wire...)
			corrupt[i] ^= 1 << bit
			dec := NewDecoder(testSeeds)
			dec.Write(corrupt)
			if _, err := dec.Next(); err != ErrBadChecksum {
				t.Fatalf("byte %d bit %d: err = %v, want ErrBadChecksum", i, bit, err)
			}
		}
	}
}

func TestDecoderUnknownIDPassesThrough(t *testing.T) {
	// Frames with ids the catalog does not know cannot be validated and are
	// forwarded opaquely; hand-build one with a bogus checksum.
	wire := []byte{MagicV1, 1, 0, 9, 9, 123, 0x55, 0xde, 0xad}
	f := decodeOne(t, testSeeds, wire)
	if f.ID != 123 || f.Checksum != 0xadde {
		t.Fatalf("frame = %+v", f)
	}
}

func TestDecoderTwoFramesOneWrite(t *testing.T) {
	a := &Frame{Version: V1, Sender: SysCompID{1, 1}, ID: 42, Payload: []byte{1}}
	b := &Frame{Version: V2, Sender: SysCompID{2, 2}, ID: 76, Payload: []byte{2}}
	wa, _ := a.Encode(testSeeds)
	wb, _ := b.Encode(testSeeds)

	dec := NewDecoder(testSeeds)
	dec.Write(append(append([]byte(nil), wa...), wb...))

	f1, err := dec.Next()
	if err != nil || f1 == nil || f1.ID != 42 {
		t.Fatalf("first frame = %+v, err = %v", f1, err)
	}
	f2, err := dec.Next()
	if err != nil || f2 == nil || f2.ID != 76 {
		t.Fatalf("second frame = %+v, err = %v", f2, err)
	}
	f3, err := dec.Next()
	if err != nil || f3 != nil {
		t.Fatalf("expected empty decoder, got %+v, %v", f3, err)
	}
}

func TestSysCompIDValid(t *testing.T) {
	cases := []struct {
		id   SysCompID
		want bool
	}{
		{SysCompID{0, 0}, false},
		{SysCompID{1, 0}, false},
		{SysCompID{0, 1}, false},
		{SysCompID{1, 1}, true},
		{SysCompID{255, 255}, true},
	}
	for _, c := range cases {
		if got := c.id.Valid(); got != c.want {
			t.Errorf("%v.Valid() = %v, want %v", c.id, got, c.want)
		}
	}
}
