package mavlink

import "errors"

var (
	// ErrInvalidMagic is reported once per run of garbage discarded while
	// scanning for a start-of-frame marker.
	ErrInvalidMagic = errors.New("mavlink: invalid magic byte")

	// ErrBadChecksum is reported for a structurally complete frame whose
	// checksum does not match the message's integrity seed.
	ErrBadChecksum = errors.New("mavlink: checksum mismatch")

	// ErrUnknownMessage is returned by Encode when the message id has no
	// integrity seed in the active dialect.
	ErrUnknownMessage = errors.New("mavlink: message id not in dialect")

	// ErrPayloadTooLarge is returned by Encode for payloads over 255 bytes.
	ErrPayloadTooLarge = errors.New("mavlink: payload exceeds 255 bytes")

	// ErrBadSignature is returned by Encode when a signing flag and the
	// signature length disagree.
	ErrBadSignature = errors.New("mavlink: signature trailer must be 13 bytes")
)
