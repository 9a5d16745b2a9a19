package mavlink

// X25 accumulates the CRC-16/MCRF4XX checksum used by the frame trailer and
// by dialect integrity seeds.
type X25 struct {
	sum uint16
}

// NewX25 returns an accumulator seeded with 0xFFFF.
func NewX25() *X25 { return &X25{sum: 0xffff} }

// WriteByte folds one byte into the running checksum.
func (c *X25) WriteByte(b byte) {
	tmp := b ^ byte(c.sum&0xff)
	tmp ^= tmp << 4
	c.sum = (c.sum >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

// Write folds p into the running checksum.
func (c *X25) Write(p []byte) {
	for _, b := range p {
		c.WriteByte(b)
	}
}

// WriteString folds s into the running checksum.
func (c *X25) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		c.WriteByte(s[i])
	}
}

// Sum16 returns the current checksum value.
func (c *X25) Sum16() uint16 { return c.sum }
