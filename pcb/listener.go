package pcb

import (
	"log/slog"
	"time"
)

// listenQueueEntry holds one fully-handshaked connection waiting for the
// application to accept it. Entries are dispatched in arrival order; each
// carries its own deadline so a slow application doesn't stall newer
// connections behind an old one indefinitely.
type listenQueueEntry struct {
	pcb      *PCB
	deadline time.Time
	// initial buffers data the peer sent before the application accepted,
	// bounded by the pool's ListenRxBufferSize; Accept hands it back
	// alongside the PCB so no early bytes are lost to the accept latency.
	initial []byte
}

// acceptRing is a fixed-capacity FIFO of listenQueueEntry values addressed by
// a head index and count instead of reslicing, so popping never shrinks the
// backing array's capacity (a plain slice three-way reslice like
// queue[1:] would, making a stale cap()==0 check eventually misfire).
type acceptRing struct {
	buf  []listenQueueEntry
	head int
	n    int
}

func newAcceptRing(capacity int) acceptRing {
	if capacity <= 0 {
		return acceptRing{}
	}
	return acceptRing{buf: make([]listenQueueEntry, capacity)}
}

func (r *acceptRing) cap() int  { return len(r.buf) }
func (r *acceptRing) len() int  { return r.n }
func (r *acceptRing) full() bool { return r.n == len(r.buf) }

func (r *acceptRing) front() *listenQueueEntry {
	if r.n == 0 {
		return nil
	}
	return &r.buf[r.head]
}

func (r *acceptRing) pushBack(e listenQueueEntry) {
	r.buf[(r.head+r.n)%len(r.buf)] = e
	r.n++
}

// popFront removes and returns the oldest entry. Callers must check len()
// first.
func (r *acceptRing) popFront() listenQueueEntry {
	e := r.buf[r.head]
	r.buf[r.head] = listenQueueEntry{}
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return e
}

// each calls fn for every queued entry, oldest first, without mutating the
// ring.
func (r *acceptRing) each(fn func(listenQueueEntry)) {
	for i := 0; i < r.n; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}

// Listener represents a passive-open TCP endpoint bound to a local address
// and port. Incoming SYNs that match it are handed a PCB from the shared
// [Pool]; once the three-way handshake completes the PCB is not dispatched
// immediately — it waits in pending for its first data/FIN or its accept
// deadline (spec's "ready on first data or timeout" rule, matching
// TCP_DEFER_ACCEPT-style semantics so a connection that never sends
// anything doesn't tie up the application's accept loop) — before moving to
// the accept queue proper, which is either delivered synchronously (queue
// size 0, the common case for an application that accepts eagerly) or
// placed on a bounded listen queue for the application to drain later.
type Listener struct {
	LocalAddr [4]byte
	LocalPort uint16

	MaxPCBs       int
	NumPCBs       int
	InitialWindow uint16

	queue        acceptRing
	pending      acceptRing
	queueTimeout time.Duration
	rxBufSize    int

	onEstablished func(*PCB)

	pool *Pool

	logger
}

// NewListener creates a Listener bound to addr:port. queueSize of 0 means
// every established connection must be accepted synchronously via
// onEstablished; a positive queueSize buffers up to that many fully
// established connections awaiting Accept. queueTimeout bounds both how long
// a just-established connection waits for its first data before being
// dispatched anyway, and how long a dispatched entry waits in the accept
// queue before being aborted.
func NewListener(pool *Pool, addr [4]byte, port uint16, maxPCBs int, queueSize int, queueTimeout time.Duration, onEstablished func(*PCB)) *Listener {
	l := &Listener{
		LocalAddr:     addr,
		LocalPort:     port,
		MaxPCBs:       maxPCBs,
		InitialWindow: 1<<16 - 1,
		queueTimeout:  queueTimeout,
		onEstablished: onEstablished,
		pool:          pool,
	}
	if pool != nil {
		l.rxBufSize = pool.cfg.ListenRxBufferSize
	}
	if queueSize > 0 {
		l.queue = newAcceptRing(queueSize)
		l.pending = newAcceptRing(queueSize)
	}
	return l
}

// AcceptsNewPCB reports whether the listener has room for another
// in-progress or queued connection.
func (l *Listener) AcceptsNewPCB() bool {
	return l.MaxPCBs == 0 || l.NumPCBs < l.MaxPCBs
}

// NotifyEstablished is called by the input pipeline the moment a SYN_RCVD
// PCB belonging to this listener reaches ESTABLISHED. Rather than
// dispatching straight away, it parks the PCB in pending until
// notifyFirstData reports data (or a FIN) has arrived, or until its
// deadline passes, whichever comes first.
func (l *Listener) NotifyEstablished(now time.Time, p *PCB) {
	if l.pending.cap() == 0 {
		l.deliver(now, p, nil)
		return
	}
	p.Flags |= FlagAcceptPending
	if l.pending.full() {
		oldest := l.pending.front()
		if !now.Before(oldest.deadline) {
			e := l.pending.popFront()
			e.pcb.Flags &^= FlagAcceptPending
			l.deliver(now, e.pcb, e.initial)
		} else {
			// At capacity with nothing expired: the new connection is
			// silently dropped, RST-less. The peer's retransmits will find
			// a slot or time out.
			p.abortQuiet()
			return
		}
	}
	l.pending.pushBack(listenQueueEntry{pcb: p, deadline: now.Add(l.queueTimeout)})
}

// notifyFirstData is called by the input pipeline as soon as a pending
// (accept-deferred) PCB delivers its first data or FIN, promoting it to the
// accept queue immediately instead of waiting out the rest of its deadline.
func (l *Listener) notifyFirstData(now time.Time, p *PCB) {
	if !p.Flags.Has(FlagAcceptPending) {
		return
	}
	p.Flags &^= FlagAcceptPending
	initial := l.removePending(p)
	l.deliver(now, p, initial)
}

// removePending drops p out of the pending ring wherever it sits, returning
// any buffered early data and preserving the relative order of the rest
// (the ring stays small and bounded, so a linear rebuild on the rare
// non-FIFO removal is cheap).
func (l *Listener) removePending(p *PCB) (initial []byte) {
	if l.pending.cap() == 0 {
		return nil
	}
	remaining := make([]listenQueueEntry, 0, l.pending.len())
	l.pending.each(func(e listenQueueEntry) {
		if e.pcb != p {
			remaining = append(remaining, e)
		} else {
			initial = e.initial
		}
	})
	l.pending = newAcceptRing(l.pending.cap())
	for _, e := range remaining {
		l.pending.pushBack(e)
	}
	return initial
}

// ExpirePending dispatches any pending (accept-deferred) connection whose
// deadline has passed even though no data arrived, so a peer that completes
// the handshake and then goes silent still eventually reaches the accept
// queue instead of blocking it forever.
func (l *Listener) ExpirePending(now time.Time) {
	for l.pending.len() > 0 && !now.Before(l.pending.front().deadline) {
		e := l.pending.popFront()
		e.pcb.Flags &^= FlagAcceptPending
		l.trace("listener:pending-timeout", slog.Uint64("remote-port", uint64(e.pcb.RemotePort)))
		l.deliver(now, e.pcb, e.initial)
	}
}

// deliver places p on the accept queue. With no queue configured, it invokes
// onEstablished immediately (synchronous handoff); otherwise the PCB is
// queued, unless the queue is full, in which case the oldest entry is
// evicted to make room only if it is already past its deadline — a full,
// all-fresh queue instead causes the new connection's PCB to be aborted,
// matching the bounded-resource intent of a fixed listen backlog.
func (l *Listener) deliver(now time.Time, p *PCB, initial []byte) {
	if l.queue.cap() == 0 {
		if l.onEstablished != nil {
			l.onEstablished(p)
		}
		return
	}
	if l.queue.full() {
		oldest := l.queue.front()
		if !now.Before(oldest.deadline) {
			e := l.queue.popFront()
			e.pcb.abortWithReset()
		} else {
			l.debug("listener:queue-full-drop")
			p.abortQuiet() // at capacity: silent, RST-less reset.
			return
		}
	}
	l.queue.pushBack(listenQueueEntry{pcb: p, deadline: now.Add(l.queueTimeout), initial: initial})
}

// Accept removes and returns the oldest queued connection, if any, along
// with whatever data the peer sent before the application got here.
func (l *Listener) Accept() (*PCB, []byte, bool) {
	if l.queue.len() == 0 {
		return nil, nil, false
	}
	e := l.queue.popFront()
	return e.pcb, e.initial, true
}

// stashInitialData buffers bytes that arrived for a connection still
// sitting in the pending or accept rings (no Connection handle bound yet),
// bounded by the configured per-entry buffer size. Overflow is dropped; the
// unannounced window keeps well-behaved peers from getting here.
func (l *Listener) stashInitialData(p *PCB, payload []byte) {
	e := l.findEntry(p)
	if e == nil {
		return
	}
	room := l.rxBufSize - len(e.initial)
	if room <= 0 {
		return
	}
	if len(payload) > room {
		payload = payload[:room]
	}
	e.initial = append(e.initial, payload...)
}

// removeQueued drops p out of the accept queue wherever it sits, used when
// a queued-but-unaccepted connection is torn down underneath the listener
// (peer RST, pool eviction) so Accept never hands out a recycled PCB.
func (l *Listener) removeQueued(p *PCB) {
	if l.queue.cap() == 0 {
		return
	}
	remaining := make([]listenQueueEntry, 0, l.queue.len())
	l.queue.each(func(e listenQueueEntry) {
		if e.pcb != p {
			remaining = append(remaining, e)
		}
	})
	l.queue = newAcceptRing(l.queue.cap())
	for _, e := range remaining {
		l.queue.pushBack(e)
	}
}

func (l *Listener) findEntry(p *PCB) *listenQueueEntry {
	for i := 0; i < l.queue.n; i++ {
		if e := &l.queue.buf[(l.queue.head+i)%len(l.queue.buf)]; e.pcb == p {
			return e
		}
	}
	for i := 0; i < l.pending.n; i++ {
		if e := &l.pending.buf[(l.pending.head+i)%len(l.pending.buf)]; e.pcb == p {
			return e
		}
	}
	return nil
}

// ExpireQueue aborts any queued connection past its deadline, called
// periodically by the engine's timer sweep (the queue itself carries no
// per-entry timer; the oldest entry's deadline bounds the whole queue
// since entries are FIFO).
func (l *Listener) ExpireQueue(now time.Time) {
	for l.queue.len() > 0 && !now.Before(l.queue.front().deadline) {
		e := l.queue.popFront()
		e.pcb.abortWithReset()
	}
}

// Close aborts every PCB still owned by this listener, whether mid
// handshake, awaiting first data, or sitting in the accept queue, and
// detaches it so future segments for those 4-tuples are no longer
// recognized.
func (l *Listener) Close() {
	for l.pending.len() > 0 {
		e := l.pending.popFront()
		e.pcb.abortWithReset()
	}
	for l.queue.len() > 0 {
		e := l.queue.popFront()
		e.pcb.abortWithReset()
	}
	l.pending = acceptRing{}
	l.queue = acceptRing{}
	if l.pool != nil {
		l.pool.closeListener(l)
	}
}
