package pcb

import (
	"time"

	"github.com/nilgrove/pcbstack/timer"
	"github.com/nilgrove/pcbstack/tcp"
)

// Timer slot indices within a PCB's [timer.Group].
const (
	timerAbort = iota
	timerOutput
	timerRtx
	numPCBTimers
)

// PCB is a Protocol Control Block: the engine-owned state record for one
// TCP connection. It is never constructed directly by application code;
// [Pool.AllocatePCB] and the listen path hand one out already wired into
// the pool's indices.
//
// The RFC 9293 send/receive sequence-number bookkeeping (snd_una, snd_nxt,
// rcv_nxt, per-state segment acceptance) is delegated to the embedded
// [tcp.ControlBlock]; everything this type adds on top — MSS/PMTU, RFC 5681
// congestion control, RFC 6298 RTT/RTO estimation, fast retransmit, and
// out-of-order buffering — has no equivalent there.
type PCB struct {
	scb tcp.ControlBlock

	LocalAddr, RemoteAddr [4]byte
	LocalPort, RemotePort uint16

	SndMSS, BaseSndMSS uint16
	RTO                time.Duration
	RTTTestTime        time.Time
	SndWndShift        uint8
	RcvWndShift        uint8
	RcvAnnWnd          uint16 // last window value actually announced to the peer

	Flags     Flags
	NumDupAck uint8

	Listener *Listener
	Conn     *Connection

	timers timer.Group

	ooSegBuf oosRing

	// lruPrev/lruNext link this PCB into the pool's unreferenced-LRU
	// eviction list while lruLinked is set; the same lruNext chains free
	// PCBs off the pool's free list. A PCB with a bound Connection is
	// never linked: the eviction list holds only connections nothing
	// application-side still references.
	lruPrev, lruNext int
	lruLinked        bool
	selfIndex        int
	pool             *Pool
}

// abortWithReset forcibly terminates the connection and arranges for an RST
// to be sent to the peer, the abort used for stale listen-queue entries and
// pool eviction of synchronized connections (the remote end may still
// believe the connection is live). The RST itself is queued on the owning
// [Pool] (keyed by the 4-tuple, captured before the PCB is recycled) since
// the PCB is returned to the free list immediately and must not be relied
// on to still hold its address/port fields by the time the network layer
// gets around to sending it.
func (p *PCB) abortWithReset() { p.abort(true) }

// abortQuiet terminates the connection without telling the peer: an
// RST-less reset, used when a listen queue at capacity drops a new
// connection.
func (p *PCB) abortQuiet() { p.abort(false) }

func (p *PCB) abort(withReset bool) {
	p.detachFromListener()
	rst, ok := p.scb.Abort(withReset)
	if withReset && ok && p.pool != nil {
		p.pool.queueReset(pendingReset{
			local: p.LocalAddr, remote: p.RemoteAddr,
			localPort: p.LocalPort, remotePort: p.RemotePort,
			seg: rst,
		})
	}
	if conn := p.Conn; conn != nil {
		p.Conn = nil
		conn.pcb = nil
		if conn.cb.OnAborted != nil {
			conn.cb.OnAborted()
		}
	}
	if p.pool != nil {
		p.pool.release(p)
	}
}

// armAbortTimer (re)arms AbortTimer according to the PCB's current state,
// bounding how long a connection may sit in a transient or wind-down state
// before the engine's timer sweep tears it down: SYN_SENT and SYN_RCVD get
// the handshake timeouts, TIME_WAIT gets the 2MSL-ish wait, and an
// abandoned PCB (no application Connection, handshake already past) gets
// AbandonedTimeout so a peer that never finishes closing doesn't pin a PCB
// forever. Any other state disarms the timer.
func (p *PCB) armAbortTimer(now time.Time) {
	if p.pool == nil {
		return
	}
	cfg := &p.pool.cfg
	switch {
	case p.State() == tcp.StateSynSent:
		p.AbortTimer().SetRelative(now, cfg.SynSentTimeout)
	case p.State() == tcp.StateSynRcvd:
		p.AbortTimer().SetRelative(now, cfg.SynRcvdTimeout)
	case p.State() == tcp.StateTimeWait:
		p.AbortTimer().SetRelative(now, cfg.TimeWaitTime)
	case p.IsAbandoned() && p.State() != tcp.StateClosed:
		p.AbortTimer().SetRelative(now, cfg.AbandonedTimeout)
	default:
		p.AbortTimer().Unset()
	}
}

// StartActiveOpen marks a client PCB's freshly committed SYN as awaiting
// transmission and bounds the whole handshake attempt with the SYN_SENT
// abort timeout. Called once by the engine right after the opening SYN is
// accepted into the ControlBlock's send sequence space.
func (p *PCB) StartActiveOpen(now time.Time) {
	p.Flags |= FlagSynPending | FlagOutPending
	p.armAbortTimer(now)
}

// teardownOnRemoteClose severs the application handle and returns the PCB
// to the pool after the peer ended the connection: aborted is true for an
// RST (the application sees OnAborted), false for a graceful close whose
// FIN handshake just completed (the application already saw the FIN via
// OnDataReceived(0)).
func (p *PCB) teardownOnRemoteClose(aborted bool) {
	p.detachFromListener()
	if conn := p.Conn; conn != nil {
		p.Conn = nil
		conn.pcb = nil
		if aborted && conn.cb.OnAborted != nil {
			conn.cb.OnAborted()
		}
	}
	if p.pool != nil {
		p.pool.release(p)
	}
}

// detachFromListener pulls p out of its listener's pending and accept
// rings, if it sits in either, so a teardown can never leave a dangling
// ring entry for Accept or the deadline sweeps to trip over.
func (p *PCB) detachFromListener() {
	l := p.Listener
	if l == nil {
		return
	}
	p.Flags &^= FlagAcceptPending
	l.removePending(p)
	l.removeQueued(p)
}

// HandleAbortTimeout is called by the engine's timer sweep when AbortTimer
// fires. The handshake states and TIME_WAIT tear down without an RST
// (either no synchronized peer state exists yet, or the peer already
// finished closing); an abandoned or stuck synchronized connection is
// aborted with an RST since the peer may still believe it is live.
func (p *PCB) HandleAbortTimeout() {
	switch p.State() {
	case tcp.StateSynSent, tcp.StateSynRcvd:
		p.teardownOnRemoteClose(true) // handshake failed: surface OnAborted
		return
	case tcp.StateTimeWait:
		p.teardownOnRemoteClose(false)
		return
	}
	p.abortWithReset()
}

// HandleExpiredTimers is called once per PCB by the engine's periodic sweep
// ([timer] updates are staged, not applied immediately, so this must run
// before the caller flushes). It dispatches every timer slot whose deadline
// has passed to the matching handler; AbortTimer firing may release or
// recycle the PCB entirely, so nothing after that branch touches p again.
func (p *PCB) HandleExpiredTimers(now time.Time) {
	var expired [numPCBTimers]int
	for _, idx := range p.timers.Expired(now, expired[:0]) {
		switch idx {
		case timerAbort:
			p.HandleAbortTimeout()
			return
		case timerRtx:
			p.HandleRtxTimeout(now)
		case timerOutput:
			p.Flags |= FlagOutPending
			p.OutputTimer().Unset()
		}
	}
}

func (p *PCB) ControlBlock() *tcp.ControlBlock { return &p.scb }

func (p *PCB) State() tcp.State { return p.scb.State() }

func (p *PCB) Timers() *timer.Group { return &p.timers }

func (p *PCB) AbortTimer() *timer.Timer  { return p.timers.At(timerAbort) }
func (p *PCB) OutputTimer() *timer.Timer { return p.timers.At(timerOutput) }
func (p *PCB) RtxTimer() *timer.Timer    { return p.timers.At(timerRtx) }

// FlushTimers applies every Set/Unset staged against this PCB's timers
// during the current processing pass, as required before their Expired/At
// state can be trusted. Called once per PCB at the end of each engine tick.
func (p *PCB) FlushTimers() bool { return p.timers.Flush() }

// IsAbandoned reports whether the PCB has no application-level Connection
// and is not in the middle of a SYN_RCVD handshake owned by a Listener
// (i.e. matches the spec's "abandoned PCB" condition used by the output
// pipeline and eviction logic).
func (p *PCB) IsAbandoned() bool {
	return p.Conn == nil && !(p.State() == tcp.StateSynRcvd && p.Listener != nil)
}

// key returns the 4-tuple identifying this PCB's connection.
func (p *PCB) key() fourTuple {
	return fourTuple{local: p.LocalAddr, remote: p.RemoteAddr, localPort: p.LocalPort, remotePort: p.RemotePort}
}

// reset clears a PCB back to its zero-ish unused state, releasing its
// Connection link and timers. Called when a PCB returns to CLOSED.
func (p *PCB) reset() {
	conn := p.Conn
	pool := p.pool
	if p.Listener != nil {
		p.Listener.NumPCBs--
	}
	*p = PCB{selfIndex: p.selfIndex, pool: pool, lruPrev: -1, lruNext: -1}
	p.timers = timer.NewGroup(numPCBTimers)
	if pool != nil {
		p.ooSegBuf = newOOSRing(pool.cfg.NumOosSegs)
	}
	if conn != nil {
		conn.pcb = nil
	}
}

type fourTuple struct {
	local, remote         [4]byte
	localPort, remotePort uint16
}
