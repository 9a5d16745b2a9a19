// Package dialect loads MAVLink message-catalog XML into an immutable runtime
// schema: message definitions with resolved wire layouts, per-message
// integrity seeds, enum tables and the target-field offsets that drive
// routing decisions.
//
// A loaded Dialect is read-only and shared by reference across every endpoint
// pump; reloading builds a fresh instance to swap in, never mutates one in
// place.
package dialect

import (
	"sort"

	"mavroute/pkg/mavlink"
)

// Message is one message definition with its resolved wire layout.
type Message struct {
	ID   uint32
	Name string

	// Fields is the wire-order layout: base fields stably sorted by
	// descending element size, extension fields appended in declaration
	// order.
	Fields []Field

	// Seed is the integrity seed (CRC_EXTRA) derived from the name and
	// the base field layout.
	Seed uint8

	// Payload byte offsets of the target addressing fields, -1 when the
	// message does not carry them.
	TargetSystemOfs    int
	TargetComponentOfs int
}

// Targeted reports whether the message addresses a specific recipient.
func (m *Message) Targeted() bool { return m.TargetSystemOfs >= 0 }

// Enum is a named value table referenced by field declarations.
type Enum struct {
	Name    string
	Entries map[string]uint64
}

// Dialect is the immutable combined schema of one or more catalog documents.
type Dialect struct {
	msgs  map[uint32]*Message
	enums map[string]*Enum
}

// Message returns the definition for id.
func (d *Dialect) Message(id uint32) (*Message, bool) {
	m, ok := d.msgs[id]
	return m, ok
}

// Seed implements mavlink.SeedLookup.
func (d *Dialect) Seed(id uint32) (uint8, bool) {
	m, ok := d.msgs[id]
	if !ok {
		return 0, false
	}
	return m.Seed, true
}

// Enum returns the enum table with the given name.
func (d *Dialect) Enum(name string) (*Enum, bool) {
	e, ok := d.enums[name]
	return e, ok
}

// Len returns the number of message definitions.
func (d *Dialect) Len() int { return len(d.msgs) }

// Target extracts the declared target identity from a payload. ok is false
// when the message id is unknown or the message carries no target fields.
//
// v2 frames may truncate trailing zero payload bytes, so offsets past the end
// of the received payload read as zero.
func (d *Dialect) Target(id uint32, payload []byte) (mavlink.SysCompID, bool) {
	m, ok := d.msgs[id]
	if !ok || !m.Targeted() {
		return mavlink.SysCompID{}, false
	}
	var t mavlink.SysCompID
	if m.TargetSystemOfs < len(payload) {
		t.System = payload[m.TargetSystemOfs]
	}
	if m.TargetComponentOfs >= 0 && m.TargetComponentOfs < len(payload) {
		t.Component = payload[m.TargetComponentOfs]
	}
	return t, true
}

// finishMessage resolves the wire layout of a parsed message: sorts base
// fields, locates target offsets and derives the integrity seed.
func finishMessage(m *Message) error {
	base := m.Fields
	for i, f := range m.Fields {
		if f.Extension {
			base = m.Fields[:i]
			break
		}
	}
	// Extension fields keep declaration order and are never reordered.
	sort.SliceStable(base, func(i, j int) bool {
		return base[i].Type.Size() > base[j].Type.Size()
	})

	m.TargetSystemOfs, m.TargetComponentOfs = -1, -1
	ofs := 0
	for _, f := range m.Fields {
		switch f.Name {
		case "target_system":
			m.TargetSystemOfs = ofs
		case "target_component":
			m.TargetComponentOfs = ofs
		}
		ofs += f.WireSize()
	}
	if m.TargetComponentOfs >= 0 && m.TargetSystemOfs < 0 {
		return ErrMissingTargetSys
	}

	m.Seed = integritySeed(m.Name, base)
	return nil
}

// integritySeed hashes the message name and the base wire layout into the
// one-byte seed folded into every frame checksum for this message.
func integritySeed(name string, base []Field) uint8 {
	crc := mavlink.NewX25()
	crc.WriteString(name + " ")
	for _, f := range base {
		crc.WriteString(f.Type.String() + " ")
		crc.WriteString(f.Name + " ")
		if f.Array {
			crc.WriteByte(byte(f.ArrayLen))
		}
	}
	sum := crc.Sum16()
	return uint8(sum&0xff) ^ uint8(sum>>8)
}
