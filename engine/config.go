// Package engine ties the reassembler, the PCB pool and the IPv4/ICMP wire
// layer together into the single entry point an application actually talks
// to: feed it raw IPv4 datagrams and periodic ticks, and it hands back
// TCP/ICMP replies ready for the network. It plays the role AIpStack's
// IpTcpProto/IpStack glue code plays over the ported IpReassembly and TCP
// pieces: demuxing an incoming datagram to the right PCB or listener,
// synthesizing RSTs for anything that matches neither, and reacting to path
// MTU feedback from ICMP.
package engine

import (
	"time"

	"github.com/nilgrove/pcbstack/ipreasm"
	"github.com/nilgrove/pcbstack/pcb"
)

// Config bounds the resources an [Engine] uses and names the local address
// it answers for.
type Config struct {
	LocalAddr [4]byte

	Pool    pcb.Config
	Reasm   ipreasm.Config
	MinMTU  uint16
	PathMTU uint16 // initial assumed path MTU before any PMTU feedback narrows it

	// MaxListeners bounds the number of listeners the engine tracks for its
	// periodic accept-queue sweep.
	MaxListeners int

	// PMTUCacheEntries bounds the number of distinct remote addresses the
	// path-MTU cache remembers; PMTUCacheMaxAge bounds how long a learned
	// estimate is trusted before a fresh connection falls back to PathMTU.
	PMTUCacheEntries int
	PMTUCacheMaxAge  time.Duration
}

// DefaultConfig returns sensible defaults for a small embedded-style
// deployment: a modest PCB pool, a handful of concurrent reassemblies, a
// 1500-byte starting path MTU, and the RFC 1122 minimum MTU (576) as the
// floor that PMTU feedback may narrow it to.
func DefaultConfig(localAddr [4]byte) Config {
	return Config{
		LocalAddr: localAddr,
		Pool:      pcb.DefaultConfig(),
		Reasm: ipreasm.Config{
			MaxEntries: 4,
			MaxSize:    1500,
			MaxHoles:   8,
			MaxTime:    30 * time.Second,
		},
		MinMTU:           576,
		PathMTU:          1500,
		MaxListeners:     8,
		PMTUCacheEntries: 8,
		PMTUCacheMaxAge:  10 * time.Minute,
	}
}
