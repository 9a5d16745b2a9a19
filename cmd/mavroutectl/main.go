// mavroutectl queries a running mavrouted instance for its per-endpoint
// traffic counters and prints them.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"mavroute/pkg/stats"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:14560", "stats listener address of the router")
	timeout := flag.Duration("timeout", 5*time.Second, "dial/read timeout")
	flag.Parse()

	snap, err := fetch(*addr, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query failed:", err)
		os.Exit(1)
	}

	fmt.Printf("snapshot taken at %s\n",
		time.UnixMilli(snap.TakenAtUnixMS).Format(time.RFC3339))
	names := make([]string, 0, len(snap.Endpoints))
	for name := range snap.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := snap.Endpoints[name]
		fmt.Printf("%-16s rx_bytes=%d rx_frames=%d tx_frames=%d decode_errors=%d tx_errors=%d tx_dropped=%d\n",
			name, c.RxBytes, c.RxFrames, c.TxFrames, c.DecodeErrors, c.TxErrors, c.TxDropped)
	}
}

func fetch(addr string, timeout time.Duration) (*stats.Snapshot, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	b, err := io.ReadAll(conn)
	if err != nil {
		return nil, err
	}
	var snap stats.Snapshot
	if err := cbor.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
