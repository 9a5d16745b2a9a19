package routing

import (
	"mavroute/pkg/dialect"
	"mavroute/pkg/mavlink"
)

// Destinations computes which endpoints should receive a frame. It is a pure
// function of the frame, the table snapshot and the configured endpoint set.
//
// Policy, in order:
//  1. The originating endpoint is always excluded (loop prevention).
//  2. If the dialect marks target fields for the message and the declared
//     target system is known, delivery is narrowed: a component-specific
//     table match wins over system-wide matches.
//  3. Otherwise the frame is broadcast to every endpoint except the origin.
//
// Target system 0 is the broadcast wildcard and always falls through to 3.
func Destinations(t *Table, d *dialect.Dialect, f *mavlink.Frame, origin string, all []string) []string {
	if target, ok := d.Target(f.ID, f.Payload); ok && target.System != 0 {
		if target.Component != 0 {
			if ep, ok := t.Lookup(target); ok && ep != origin {
				return []string{ep}
			}
		}
		if eps := without(t.LookupSystem(target.System), origin); len(eps) > 0 {
			return eps
		}
		// Unknown or stale target: fall back to broadcast rather than
		// dropping, so late joiners still hear addressed traffic.
	}
	return without(all, origin)
}

func without(eps []string, origin string) []string {
	out := eps[:0:0]
	for _, ep := range eps {
		if ep != origin {
			out = append(out, ep)
		}
	}
	return out
}
