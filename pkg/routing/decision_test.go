package routing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavroute/pkg/dialect"
	"mavroute/pkg/mavlink"
)

// decisionDialect defines one broadcast message (0) and one targeted message
// (76) whose target fields land at payload offsets 0 and 1.
func decisionDialect(t *testing.T) *dialect.Dialect {
	t.Helper()
	d, err := dialect.Parse(strings.NewReader(`<mavlink><messages>
		<message id="0" name="HEARTBEAT">
			<field type="uint8_t" name="type">t</field>
		</message>
		<message id="76" name="COMMAND">
			<field type="uint8_t" name="target_system">ts</field>
			<field type="uint8_t" name="target_component">tc</field>
			<field type="uint8_t" name="op">o</field>
		</message>
	</messages></mavlink>`))
	require.NoError(t, err)
	return d
}

func targetedFrame(sys, comp uint8) *mavlink.Frame {
	return &mavlink.Frame{
		Version: mavlink.V2,
		Sender:  mavlink.SysCompID{System: 1, Component: 1},
		ID:      76,
		Payload: []byte{sys, comp, 0},
	}
}

var allEndpoints = []string{"serial0", "udp0", "tcp0"}

func TestBroadcastExcludesOrigin(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)

	f := &mavlink.Frame{ID: 0, Payload: []byte{0}}
	dests := Destinations(tbl, d, f, "serial0", allEndpoints)
	assert.ElementsMatch(t, []string{"udp0", "tcp0"}, dests)
}

func TestTargetedComponentMatch(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 190}, "udp0")
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 1}, "tcp0")

	dests := Destinations(tbl, d, targetedFrame(42, 190), "serial0", allEndpoints)
	assert.Equal(t, []string{"udp0"}, dests,
		"component-specific match must win over system-wide delivery")
}

func TestTargetedSystemWide(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 1}, "udp0")
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 2}, "tcp0")

	// Component 0 addresses the whole system.
	dests := Destinations(tbl, d, targetedFrame(42, 0), "serial0", allEndpoints)
	assert.ElementsMatch(t, []string{"udp0", "tcp0"}, dests)
}

func TestTargetedUnknownComponentFallsBackToSystem(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 1}, "udp0")

	dests := Destinations(tbl, d, targetedFrame(42, 99), "serial0", allEndpoints)
	assert.Equal(t, []string{"udp0"}, dests)
}

func TestTargetedUnknownSystemBroadcasts(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)

	dests := Destinations(tbl, d, targetedFrame(99, 0), "serial0", allEndpoints)
	assert.ElementsMatch(t, []string{"udp0", "tcp0"}, dests,
		"unknown target must broadcast, not drop")
}

func TestTargetSystemZeroIsWildcard(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 1}, "udp0")

	dests := Destinations(tbl, d, targetedFrame(0, 0), "serial0", allEndpoints)
	assert.ElementsMatch(t, []string{"udp0", "tcp0"}, dests)
}

func TestTargetOnOriginNotEchoed(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 190}, "serial0")

	dests := Destinations(tbl, d, targetedFrame(42, 190), "serial0", allEndpoints)
	assert.NotContains(t, dests, "serial0", "frame routed back to its origin")
}

func TestStaleTargetBroadcasts(t *testing.T) {
	d := decisionDialect(t)
	tbl, clk := newTestTable(10 * time.Second)
	tbl.Observe(mavlink.SysCompID{System: 42, Component: 190}, "udp0")
	clk.advance(11 * time.Second)

	dests := Destinations(tbl, d, targetedFrame(42, 190), "serial0", allEndpoints)
	assert.ElementsMatch(t, []string{"udp0", "tcp0"}, dests)
}

func TestUnknownMessageBroadcasts(t *testing.T) {
	d := decisionDialect(t)
	tbl, _ := newTestTable(0)

	f := &mavlink.Frame{ID: 31337, Payload: []byte{1, 2, 3}}
	dests := Destinations(tbl, d, f, "udp0", allEndpoints)
	assert.ElementsMatch(t, []string{"serial0", "tcp0"}, dests)
}
