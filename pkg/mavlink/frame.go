// Package mavlink implements framing for the MAVLink wire protocol: the v1
// (0xFE) and v2 (0xFD) frame layouts, X.25 checksum validation seeded with
// per-message integrity seeds, a streaming decoder that resynchronizes after
// corrupt input, and the matching encoder.
//
// The packet catalog itself is not known to this package; callers supply a
// SeedLookup (normally a *dialect.Dialect) that resolves message ids to their
// integrity seeds.
package mavlink

import "fmt"

// Version selects one of the two supported frame layouts.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return "unknown"
	}
}

// Frame layout constants. All multi-byte header fields are little-endian.
//
// v1:  0xFE | len | seq | sysid | compid | msgid      | payload | crc_lo crc_hi
// v2:  0xFD | len | incompat | compat | seq | sysid | compid | msgid[3] |
//      payload | crc_lo crc_hi | [signature 13B when incompat&0x01]
const (
	MagicV1 = 0xFE
	MagicV2 = 0xFD

	headerLenV1 = 6
	headerLenV2 = 10
	checksumLen = 2

	// SignatureLen is the fixed length of the optional v2 signing trailer
	// (link id + 48-bit timestamp + 48-bit signature).
	SignatureLen = 13

	minFrameLenV1 = headerLenV1 + checksumLen
	minFrameLenV2 = headerLenV2 + checksumLen

	// MaxPayloadLen is bounded by the one-byte length field.
	MaxPayloadLen = 255

	// MaxFrameLen is the largest possible frame on the wire: a signed v2
	// frame with a full payload.
	MaxFrameLen = headerLenV2 + MaxPayloadLen + checksumLen + SignatureLen

	// IncompatFlagSigned marks a v2 frame carrying a signature trailer.
	IncompatFlagSigned = 0x01
)

// SysCompID identifies a system/component pair on the MAVLink network.
type SysCompID struct {
	System    uint8
	Component uint8
}

// Valid reports whether the pair is usable as a sender identity. System and
// component 0 are reserved wildcard values and never identify a real sender.
func (id SysCompID) Valid() bool { return id.System != 0 && id.Component != 0 }

func (id SysCompID) String() string {
	return fmt.Sprintf("%d/%d", id.System, id.Component)
}

// SeedLookup resolves the integrity seed (CRC_EXTRA) for a message id.
// Implemented by *dialect.Dialect.
type SeedLookup interface {
	Seed(msgID uint32) (uint8, bool)
}

// SeedMap is a SeedLookup backed by a plain map, used in tests and tools.
type SeedMap map[uint32]uint8

func (m SeedMap) Seed(id uint32) (uint8, bool) {
	s, ok := m[id]
	return s, ok
}

// Frame is one complete, structurally valid protocol unit.
//
// Payload and Signature alias Raw; none of the three may be mutated after the
// frame leaves the decoder, since the same backing array is shared by every
// destination queue the router fans the frame out to.
type Frame struct {
	Version Version

	// IncompatFlags and CompatFlags are meaningful for v2 frames only.
	IncompatFlags uint8
	CompatFlags   uint8

	Seq    uint8
	Sender SysCompID
	ID     uint32

	Payload   []byte
	Checksum  uint16
	Signature []byte

	// Raw holds the full frame exactly as transmitted on the wire.
	Raw []byte
}

// Signed reports whether the frame carries a v2 signature trailer.
func (f *Frame) Signed() bool {
	return f.Version == V2 && f.IncompatFlags&IncompatFlagSigned != 0
}

// computeChecksum runs X.25 over the frame bytes after the magic through the
// payload, then folds in the message's integrity seed.
func computeChecksum(frame []byte, headerLen int, payloadLen int, seed uint8) uint16 {
	crc := NewX25()
	crc.Write(frame[1 : headerLen+payloadLen])
	crc.WriteByte(seed)
	return crc.Sum16()
}
