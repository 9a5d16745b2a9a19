package mavlink

import "encoding/binary"

// Decoder turns a byte stream into frames. It owns an internal reassembly
// buffer, so transport reads of arbitrary alignment (stream chunks or whole
// datagrams) can be pushed in as they arrive.
//
// A Decoder is not safe for concurrent use; the router runs one per endpoint
// read pump.
type Decoder struct {
	seeds SeedLookup
	buf   []byte
}

// NewDecoder returns a decoder validating checksums against seeds.
func NewDecoder(seeds SeedLookup) *Decoder {
	return &Decoder{seeds: seeds}
}

// Write appends raw transport bytes to the reassembly buffer.
func (d *Decoder) Write(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of unparsed bytes held by the decoder.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Next extracts the next complete frame from the buffer.
//
// It returns (nil, nil) when more input is needed. Corrupt input yields a
// non-nil error and consumes at least one byte, so the caller can count the
// failure and call Next again; the stream is rescanned for the next start
// marker rather than assumed to stay byte-aligned.
//
// The returned frame owns its Raw bytes; Payload and Signature alias them.
func (d *Decoder) Next() (*Frame, error) {
	for {
		if len(d.buf) == 0 {
			return nil, nil
		}
		switch d.buf[0] {
		case MagicV1:
			return d.nextV1()
		case MagicV2:
			return d.nextV2()
		default:
			if !d.resync(0) {
				return nil, ErrInvalidMagic
			}
		}
	}
}

// resync drops everything before the next magic byte at offset > from.
// It reports whether a magic byte was found; otherwise the buffer is cleared.
func (d *Decoder) resync(from int) bool {
	for i := from + 1; i < len(d.buf); i++ {
		if d.buf[i] == MagicV1 || d.buf[i] == MagicV2 {
			d.buf = d.buf[i:]
			return true
		}
	}
	d.buf = d.buf[:0]
	return false
}

func (d *Decoder) nextV1() (*Frame, error) {
	if len(d.buf) < minFrameLenV1 {
		return nil, nil
	}
	payloadLen := int(d.buf[1])
	total := headerLenV1 + payloadLen + checksumLen
	if len(d.buf) < total {
		return nil, nil
	}

	msgID := uint32(d.buf[5])
	if !d.checksumOK(msgID, headerLenV1, payloadLen, total) {
		d.resync(0)
		return nil, ErrBadChecksum
	}

	raw := d.consume(total)
	return &Frame{
		Version:  V1,
		Seq:      raw[2],
		Sender:   SysCompID{System: raw[3], Component: raw[4]},
		ID:       msgID,
		Payload:  raw[headerLenV1 : headerLenV1+payloadLen],
		Checksum: binary.LittleEndian.Uint16(raw[total-checksumLen:]),
		Raw:      raw,
	}, nil
}

func (d *Decoder) nextV2() (*Frame, error) {
	if len(d.buf) < minFrameLenV2 {
		return nil, nil
	}
	payloadLen := int(d.buf[1])
	incompat := d.buf[2]
	total := headerLenV2 + payloadLen + checksumLen
	if incompat&IncompatFlagSigned != 0 {
		total += SignatureLen
	}
	if len(d.buf) < total {
		return nil, nil
	}

	msgID := uint32(d.buf[7]) | uint32(d.buf[8])<<8 | uint32(d.buf[9])<<16
	if !d.checksumOK(msgID, headerLenV2, payloadLen, total) {
		d.resync(0)
		return nil, ErrBadChecksum
	}

	raw := d.consume(total)
	f := &Frame{
		Version:       V2,
		IncompatFlags: incompat,
		CompatFlags:   raw[3],
		Seq:           raw[4],
		Sender:        SysCompID{System: raw[5], Component: raw[6]},
		ID:            msgID,
		Payload:       raw[headerLenV2 : headerLenV2+payloadLen],
		Checksum:      binary.LittleEndian.Uint16(raw[headerLenV2+payloadLen:]),
		Raw:           raw,
	}
	if f.Signed() {
		f.Signature = raw[total-SignatureLen:]
	}
	return f, nil
}

// checksumOK validates the in-buffer frame candidate against the message's
// integrity seed. Ids absent from the dialect cannot be validated and pass
// through: such frames are still routed as opaque payloads.
func (d *Decoder) checksumOK(msgID uint32, headerLen, payloadLen, total int) bool {
	seed, ok := d.seeds.Seed(msgID)
	if !ok {
		return true
	}
	want := computeChecksum(d.buf[:total], headerLen, payloadLen, seed)
	got := binary.LittleEndian.Uint16(d.buf[headerLen+payloadLen : headerLen+payloadLen+checksumLen])
	return want == got
}

// consume copies the first n buffered bytes into a frame-owned slice and
// advances the buffer. The copy is what lets Payload stay a zero-copy view
// for the rest of the frame's life, shared across destination queues.
func (d *Decoder) consume(n int) []byte {
	raw := make([]byte, n)
	copy(raw, d.buf[:n])
	d.buf = d.buf[n:]
	return raw
}
