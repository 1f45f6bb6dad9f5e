package pcb

import (
	"log/slog"
	"time"

	"github.com/nilgrove/pcbstack/tcp"
	"github.com/nilgrove/pcbstack/timer"
)

// Pool owns a fixed-size array of PCBs and the bookkeeping needed to find,
// allocate, and recycle them: a 4-tuple lookup (linear scan, chosen over a
// hash index since NumPCBs is small and fixed — the "ArrayIndices" variant),
// an LRU list used purely for eviction order when the pool is exhausted, and
// an ephemeral-port allocator for locally-initiated connections.
//
// All indices (lruPrev/lruNext/selfIndex) are into the same backing array,
// so the LRU list costs no extra allocation.
type Pool struct {
	cfg  Config
	pcbs []PCB

	lruHead, lruTail int // indices; -1 when list empty
	freeHead         int // index of first unused PCB, chained via lruNext; -1 when none

	nextEphemeral uint16

	listeners []*Listener

	pendingResets []pendingReset

	logger
}

// pendingReset is an RST segment that must still be sent to a peer after
// its originating PCB has already been recycled.
type pendingReset struct {
	local, remote         [4]byte
	localPort, remotePort uint16
	seg                   tcp.Segment
}

func (p *Pool) queueReset(r pendingReset) {
	p.pendingResets = append(p.pendingResets, r)
}

// DrainPendingResets returns and clears every RST segment queued by
// abortWithReset calls since the last drain. The caller (the network-layer
// engine) is responsible for actually transmitting each one.
func (p *Pool) DrainPendingResets() []pendingReset {
	out := p.pendingResets
	p.pendingResets = nil
	return out
}

// NextPendingReset pops and returns the oldest queued RST, if any. Used by
// the output pipeline to hand out one reset per call rather than draining
// the whole backlog at once.
func (p *Pool) NextPendingReset() (pendingReset, bool) {
	if len(p.pendingResets) == 0 {
		return pendingReset{}, false
	}
	r := p.pendingResets[0]
	p.pendingResets = p.pendingResets[1:]
	return r, true
}

// Addrs returns the 4-tuple a pendingReset must be sent to.
func (r pendingReset) Addrs() (local, remote [4]byte, localPort, remotePort uint16) {
	return r.local, r.remote, r.localPort, r.remotePort
}

// Segment returns the RST segment to send.
func (r pendingReset) Segment() tcp.Segment { return r.seg }

// NewPool allocates cfg.NumPCBs PCBs up front; none are in use.
func NewPool(cfg Config) *Pool {
	p := &Pool{
		cfg:           cfg,
		pcbs:          make([]PCB, cfg.NumPCBs),
		lruHead:       -1,
		lruTail:       -1,
		nextEphemeral: cfg.EphemeralPortFirst,
	}
	for i := range p.pcbs {
		pc := &p.pcbs[i]
		pc.selfIndex = i
		pc.pool = p
		pc.timers = timer.NewGroup(numPCBTimers)
		pc.ooSegBuf = newOOSRing(cfg.NumOosSegs)
		pc.lruPrev, pc.lruNext = -1, -1
	}
	p.freeHead = 0
	for i := 0; i < len(p.pcbs)-1; i++ {
		p.pcbs[i].lruNext = i + 1
	}
	if len(p.pcbs) > 0 {
		p.pcbs[len(p.pcbs)-1].lruNext = -1
	} else {
		p.freeHead = -1
	}
	return p
}

func (p *Pool) inUse(pc *PCB) bool {
	return pc.State() != tcp.StateClosed || pc.Listener != nil || pc.Conn != nil
}

// lruUnlink removes index i from the unreferenced-LRU list; a no-op if it
// isn't linked.
func (p *Pool) lruUnlink(i int) {
	pc := &p.pcbs[i]
	if !pc.lruLinked {
		return
	}
	if pc.lruPrev >= 0 {
		p.pcbs[pc.lruPrev].lruNext = pc.lruNext
	} else if p.lruHead == i {
		p.lruHead = pc.lruNext
	}
	if pc.lruNext >= 0 {
		p.pcbs[pc.lruNext].lruPrev = pc.lruPrev
	} else if p.lruTail == i {
		p.lruTail = pc.lruPrev
	}
	pc.lruPrev, pc.lruNext = -1, -1
	pc.lruLinked = false
}

// lruPushFront links i at the most-recently-used end.
func (p *Pool) lruPushFront(i int) {
	pc := &p.pcbs[i]
	pc.lruPrev = -1
	pc.lruNext = p.lruHead
	pc.lruLinked = true
	if p.lruHead >= 0 {
		p.pcbs[p.lruHead].lruPrev = i
	}
	p.lruHead = i
	if p.lruTail < 0 {
		p.lruTail = i
	}
}

// updateLRU reconciles pc's unreferenced-LRU membership with the rule that
// the eviction list holds exactly the live PCBs no Connection handle
// references: an unreferenced PCB is (re)linked at the front as
// most-recently-active, a referenced one is unlinked and can never be
// evicted. Called whenever a segment is processed for pc and whenever the
// Connection link is bound or severed.
func (p *Pool) updateLRU(pc *PCB) {
	if pc.State() != tcp.StateClosed && pc.Conn == nil {
		p.lruUnlink(pc.selfIndex)
		p.lruPushFront(pc.selfIndex)
		return
	}
	p.lruUnlink(pc.selfIndex)
}

// Find returns the PCB matching the given 4-tuple, if any. A live connection
// always wins over a TIME_WAIT one with the same 4-tuple (e.g. a peer that
// reopens before our TIME_WAIT has expired): TIME_WAIT entries are skipped on
// the first pass and only matched on a second pass if nothing else matched,
// per RFC 9293 3.5's note that a new SYN matching a TIME_WAIT connection
// should be handled by the normal connection-establishment logic, not by the
// old one.
func (p *Pool) Find(local, remote [4]byte, localPort, remotePort uint16) (*PCB, bool) {
	want := fourTuple{local: local, remote: remote, localPort: localPort, remotePort: remotePort}
	var timeWaitMatch *PCB
	for i := range p.pcbs {
		pc := &p.pcbs[i]
		if !p.inUse(pc) || pc.key() != want {
			continue
		}
		if pc.State() == tcp.StateTimeWait {
			if timeWaitMatch == nil {
				timeWaitMatch = pc
			}
			continue
		}
		return pc, true
	}
	if timeWaitMatch != nil {
		return timeWaitMatch, true
	}
	return nil, false
}

// FindListener returns the listener bound to local:port, if any. A listener
// bound to the zero address matches any local address (a wildcard bind).
func (p *Pool) FindListener(local [4]byte, port uint16) (*Listener, bool) {
	for _, l := range p.listeners {
		if l.LocalPort != port {
			continue
		}
		if l.LocalAddr == [4]byte{} || l.LocalAddr == local {
			return l, true
		}
	}
	return nil, false
}

// AddListener registers l so FindListener can dispatch SYNs to it.
func (p *Pool) AddListener(l *Listener) { p.listeners = append(p.listeners, l) }

func (p *Pool) closeListener(l *Listener) {
	for i, have := range p.listeners {
		if have == l {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// AllocatePCB returns a fresh PCB ready for a new connection. If the free
// list is empty it evicts the least-recently-active PCB from the
// unreferenced-LRU list — a PCB with a bound Connection is never linked
// there and so is never a victim. An evicted victim in SYN_SENT, SYN_RCVD
// or TIME_WAIT is simply abandoned (no RST, since those states either
// never completed a handshake or already know the connection ended); any
// other victim is aborted with an RST, since the remote peer may still
// believe the connection is live. The returned PCB is not yet in the
// eviction list; it joins it when its first segment is processed, or never,
// if a Connection binds to it first.
func (p *Pool) AllocatePCB(now time.Time) (*PCB, error) {
	if p.freeHead >= 0 {
		i := p.freeHead
		pc := &p.pcbs[i]
		p.freeHead = pc.lruNext
		pc.lruPrev, pc.lruNext = -1, -1
		return pc, nil
	}
	if p.lruTail < 0 {
		p.logerr("pool:exhausted")
		return nil, ErrNoPCBAvail
	}
	victim := &p.pcbs[p.lruTail]
	p.debug("pool:evict-lru", slog.String("state", victim.State().String()))
	switch victim.State() {
	case tcp.StateSynSent, tcp.StateSynRcvd, tcp.StateTimeWait:
		p.release(victim)
	default:
		victim.abortWithReset()
	}
	if p.freeHead < 0 {
		return nil, ErrNoPCBAvail
	}
	return p.AllocatePCB(now)
}

// ReleaseForFailedSetup returns pc to the free list. For use by callers
// (the network-layer engine) that allocated a PCB but failed some later
// step of connection setup (no ephemeral port available, ControlBlock
// rejected the opening segment) before the PCB became a real connection.
func (p *Pool) ReleaseForFailedSetup(pc *PCB) { p.release(pc) }

// isFree reports whether pc already sits on the free list.
func (p *Pool) isFree(pc *PCB) bool {
	for i := p.freeHead; i >= 0; i = p.pcbs[i].lruNext {
		if i == pc.selfIndex {
			return true
		}
	}
	return false
}

// release returns pc to the free list, clearing its state. Idempotent: an
// application callback may have already torn the PCB down from inside the
// event that is now trying to release it.
func (p *Pool) release(pc *PCB) {
	if p.isFree(pc) {
		return
	}
	i := pc.selfIndex
	p.lruUnlink(i)
	pc.reset()
	pc.lruNext = p.freeHead
	p.freeHead = i
}

// AllocateEphemeralPort returns an unused local port in
// [EphemeralPortFirst, EphemeralPortLast] for an active (client-initiated)
// connection from localAddr, rotating the search start point across calls
// so successive allocations don't cluster on the low end of the range.
func (p *Pool) AllocateEphemeralPort(localAddr [4]byte, remote [4]byte, remotePort uint16) (uint16, error) {
	first, last := p.cfg.EphemeralPortFirst, p.cfg.EphemeralPortLast
	span := int(last) - int(first) + 1
	start := p.nextEphemeral
	for n := 0; n < span; n++ {
		port := first + uint16((int(start-first)+n)%span)
		if _, taken := p.Find(localAddr, remote, port, remotePort); !taken {
			p.nextEphemeral = port + 1
			if p.nextEphemeral > last || p.nextEphemeral < first {
				p.nextEphemeral = first
			}
			return port, nil
		}
	}
	return 0, ErrNoPortAvail
}

// ForEachListener calls fn for every listener registered via AddListener,
// so the engine's periodic sweep can expire pending/queued accept entries
// without reaching into Pool's listeners field directly.
func (p *Pool) ForEachListener(fn func(*Listener)) {
	for _, l := range p.listeners {
		fn(l)
	}
}

// ForEach calls fn for every in-use PCB, in array order. It must scan the
// whole array rather than the unreferenced-LRU list, which by construction
// excludes every PCB an application Connection is bound to. fn must not
// allocate or release PCBs; mutating the visited PCB in place (state,
// flags, timers) is fine.
func (p *Pool) ForEach(fn func(*PCB)) {
	for i := range p.pcbs {
		pc := &p.pcbs[i]
		if p.inUse(pc) {
			fn(pc)
		}
	}
}
