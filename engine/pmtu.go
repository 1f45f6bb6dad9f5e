package engine

import "time"

// pmtuEntry records the last MTU learned for one remote address, plus when
// it was learned so Lookup can treat stale entries as no better than
// cfg.PathMTU. AIpStack keeps this decoupled from any one PCB
// (ip/IpPathMtuCache.h) so that several connections to the same peer share
// one discovered path MTU instead of re-learning it independently; this is
// the same idea sized down to a fixed array instead of an index structure.
type pmtuEntry struct {
	remote  [4]byte
	mtu     uint16
	learned time.Time
	valid   bool
}

// pmtuTable is a small fixed-capacity cache of path MTUs keyed by remote
// address, consulted when a new PCB is set up (so it starts from the best
// known estimate rather than always assuming the interface MTU) and updated
// whenever an ICMP Fragmentation-Needed notification narrows it. Eviction is
// oldest-learned-first, mirroring pcb.Pool's own linear-scan style — the
// table is expected to hold a handful of entries, not thousands.
type pmtuTable struct {
	entries []pmtuEntry
	maxAge  time.Duration
}

func newPMTUTable(capacity int, maxAge time.Duration) pmtuTable {
	if capacity <= 0 {
		capacity = 1
	}
	return pmtuTable{entries: make([]pmtuEntry, capacity), maxAge: maxAge}
}

// Lookup returns the cached MTU for remote, if any entry exists and has not
// exceeded maxAge.
func (t *pmtuTable) Lookup(now time.Time, remote [4]byte) (uint16, bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.valid || e.remote != remote {
			continue
		}
		if t.maxAge > 0 && now.Sub(e.learned) > t.maxAge {
			e.valid = false
			return 0, false
		}
		return e.mtu, true
	}
	return 0, false
}

// Update records a freshly learned MTU for remote, reusing an existing
// entry for that address if present, otherwise evicting the
// oldest-learned slot (or the first free one).
func (t *pmtuTable) Update(now time.Time, remote [4]byte, mtu uint16) {
	var oldest *pmtuEntry
	for i := range t.entries {
		e := &t.entries[i]
		if e.valid && e.remote == remote {
			e.mtu, e.learned = mtu, now
			return
		}
		if oldest != nil && !oldest.valid {
			continue
		}
		if !e.valid || oldest == nil || e.learned.Before(oldest.learned) {
			oldest = e
		}
	}
	*oldest = pmtuEntry{remote: remote, mtu: mtu, learned: now, valid: true}
}
