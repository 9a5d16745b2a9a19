// Package serial implements stream links over local serial devices, the
// usual physical attachment for a flight-controller link.
package serial

import (
	"context"

	"go.bug.st/serial"

	"mavroute/pkg/endpoint"
)

// DefaultBaud matches the most common telemetry-radio rate.
const DefaultBaud = 57600

// Dialer opens a serial device. Devices re-enumerate when unplugged and
// replugged, so serial links reconnect like any other stream link.
type Dialer struct {
	Device string
	Baud   int
}

func (d *Dialer) Kind() endpoint.Kind { return endpoint.KindSerial }

func (d *Dialer) Reconnectable() bool { return true }

func (d *Dialer) Dial(_ context.Context) (endpoint.Link, error) {
	baud := d.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(d.Device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return &link{port: port}, nil
}

type link struct {
	port serial.Port
}

func (l *link) Read(p []byte) (int, error) {
	// Some platforms return (0, nil) on an idle line; callers expect Read
	// to block until data or error.
	for {
		n, err := l.port.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (l *link) Write(p []byte) error {
	for len(p) > 0 {
		n, err := l.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (l *link) Close() error { return l.port.Close() }
