package mavlink

import "encoding/binary"

// Encode lays out the frame's logical fields in the requested version,
// computes the checksum from the message's integrity seed and returns the
// complete wire bytes. Raw, Payload, Signature and Checksum on f are updated
// to describe the encoded frame.
//
// Frames that were decoded off the wire are forwarded via Frame.Raw directly;
// Encode is for locally originated traffic and tests.
func (f *Frame) Encode(seeds SeedLookup) ([]byte, error) {
	if len(f.Payload) > MaxPayloadLen {
		return nil, ErrPayloadTooLarge
	}
	seed, ok := seeds.Seed(f.ID)
	if !ok {
		return nil, ErrUnknownMessage
	}

	switch f.Version {
	case V1:
		return f.encodeV1(seed)
	default:
		return f.encodeV2(seed)
	}
}

func (f *Frame) encodeV1(seed uint8) ([]byte, error) {
	payloadLen := len(f.Payload)
	total := headerLenV1 + payloadLen + checksumLen
	raw := make([]byte, total)
	raw[0] = MagicV1
	raw[1] = uint8(payloadLen)
	raw[2] = f.Seq
	raw[3] = f.Sender.System
	raw[4] = f.Sender.Component
	raw[5] = uint8(f.ID)
	copy(raw[headerLenV1:], f.Payload)

	f.Checksum = computeChecksum(raw, headerLenV1, payloadLen, seed)
	binary.LittleEndian.PutUint16(raw[headerLenV1+payloadLen:], f.Checksum)

	f.Version = V1
	f.Payload = raw[headerLenV1 : headerLenV1+payloadLen]
	f.Signature = nil
	f.Raw = raw
	return raw, nil
}

func (f *Frame) encodeV2(seed uint8) ([]byte, error) {
	signed := f.IncompatFlags&IncompatFlagSigned != 0
	if signed && len(f.Signature) != SignatureLen {
		return nil, ErrBadSignature
	}

	payloadLen := len(f.Payload)
	total := headerLenV2 + payloadLen + checksumLen
	if signed {
		total += SignatureLen
	}
	raw := make([]byte, total)
	raw[0] = MagicV2
	raw[1] = uint8(payloadLen)
	raw[2] = f.IncompatFlags
	raw[3] = f.CompatFlags
	raw[4] = f.Seq
	raw[5] = f.Sender.System
	raw[6] = f.Sender.Component
	raw[7] = uint8(f.ID)
	raw[8] = uint8(f.ID >> 8)
	raw[9] = uint8(f.ID >> 16)
	copy(raw[headerLenV2:], f.Payload)

	f.Checksum = computeChecksum(raw, headerLenV2, payloadLen, seed)
	binary.LittleEndian.PutUint16(raw[headerLenV2+payloadLen:], f.Checksum)
	if signed {
		copy(raw[total-SignatureLen:], f.Signature)
		f.Signature = raw[total-SignatureLen:]
	}

	f.Version = V2
	f.Payload = raw[headerLenV2 : headerLenV2+payloadLen]
	f.Raw = raw
	return raw, nil
}
