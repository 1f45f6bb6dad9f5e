package pcb

import (
	"time"

	"github.com/nilgrove/pcbstack/pbuf"
	"github.com/nilgrove/pcbstack/tcp"
)

// Callbacks is the set of application-visible notifications a Connection
// delivers. Every callback runs synchronously from inside the pipeline call
// that triggered it (there are no suspension points, per the engine's
// single-threaded cooperative model); a callback may re-enter the engine
// (e.g. call SendData or Close) and must tolerate the PCB having been
// aborted by the time it returns.
type Callbacks struct {
	OnEstablished  func()
	OnDataReceived func(n int) // n == 0 signals FIN
	OnDataSent     func(n int)
	OnAborted      func()
}

// Connection is the application-owned handle for one TCP connection. Its
// lifetime is independent of the PCB it references: the engine severs the
// link (sets pcb.Conn = nil, pcb = nil) when the PCB is aborted, and the
// application severs it by abandoning the Connection, at which point the
// PCB enters the abandoned-close path instead of being torn down
// immediately (so any data still queued in snd_buf gets a chance to drain).
type Connection struct {
	pcb *PCB
	cb  Callbacks

	// recvBuf is supplied by the application via SetRecvBuf; delivered
	// in-order bytes are copied directly into it and OnDataReceived is
	// invoked with the count. The application must call
	// ExtendRecvBufAfterConsume before more data can be delivered into
	// the now-freed region.
	recvBuf      []byte
	recvBufUsed  int
	recvBufStart int // consumed-and-freed offset; available space is recvBuf[recvBufUsed:]

	SndBuf      []byte // outbound byte queue
	SndBufCur   int    // offset of the next unsent byte within SndBuf
	SndPshIndex int    // offset of the last byte that must not be delayed (Nagle-like push point)

	Cwnd, CwndAcked, Ssthresh tcp.Size
	Srtt, Rttvar              time.Duration
	RTTTestSeq                tcp.Value
	Recover                   tcp.Value
	PMTU                      uint16

	closingSend bool
}

// NewConnection binds a fresh Connection to p, wiring the back-reference
// both ways. Used by the engine both for a locally-initiated connect (right
// after AllocatePCB) and for a passively-accepted one (right after Accept,
// or earlier still if the listener wants congestion/RTT state initialized
// before the application calls Accept).
func NewConnection(p *PCB, cb Callbacks) *Connection {
	c := &Connection{pcb: p, cb: cb}
	p.Conn = c
	if p.pool != nil {
		// A referenced PCB leaves the unreferenced-LRU list: the pool may
		// only ever evict connections nothing application-side holds.
		p.pool.updateLRU(p)
	}
	if !p.State().IsPreestablished() && p.State() != tcp.StateClosed && !p.Flags.Has(FlagCwndInit) {
		// Accepted after the handshake already completed: the congestion
		// state that onConnectionUp would have seeded had no Connection to
		// live in at the time.
		p.initCongestion()
	}
	return c
}

// PCB returns the Connection's underlying PCB, or nil if it has been
// severed (the PCB was aborted, or this Connection was never bound).
func (c *Connection) PCB() *PCB { return c.pcb }

// SetCallbacks replaces the Connection's notification callbacks, typically
// called once the application accepts a passively-opened Connection that
// the engine pre-created (with no callbacks set) so congestion/RTT state
// could be initialized as soon as the handshake completed.
func (c *Connection) SetCallbacks(cb Callbacks) { c.cb = cb }

// IsLive reports whether the Connection still references a live PCB.
func (c *Connection) IsLive() bool { return c.pcb != nil }

// SetRecvBuf installs the buffer that in-order received bytes are copied
// into. Must be called before the connection can accept data.
func (c *Connection) SetRecvBuf(buf []byte) {
	c.recvBuf = buf
	c.recvBufUsed = 0
	c.recvBufStart = 0
}

// ExtendRecvBufAfterConsume tells the connection the application has
// consumed n bytes from the front of the receive buffer. Space is not
// reclaimed piecewise: the buffer is emptied for more incoming data only
// once every delivered byte has been consumed.
func (c *Connection) ExtendRecvBufAfterConsume(n int) {
	c.recvBufStart += n
	if c.recvBufStart >= c.recvBufUsed {
		c.recvBufStart, c.recvBufUsed = 0, 0
	}
	if c.pcb != nil {
		c.pcb.maybeAnnounceWindow()
	}
}

func (c *Connection) recvFree() int {
	if c.recvBuf == nil {
		return 0
	}
	return len(c.recvBuf) - c.recvBufUsed
}

// deliver copies payload into the receive buffer and fires OnDataReceived.
// Returns the number of bytes actually accepted (bounded by free space;
// the caller is responsible for only offering what the announced window
// allowed in).
func (c *Connection) deliver(payload []byte) int {
	n := copy(c.recvBuf[c.recvBufUsed:], payload)
	c.recvBufUsed += n
	if c.cb.OnDataReceived != nil && n > 0 {
		c.cb.OnDataReceived(n)
	}
	return n
}

// deliverFIN signals end-of-stream to the application.
func (c *Connection) deliverFIN() {
	if c.cb.OnDataReceived != nil {
		c.cb.OnDataReceived(0)
	}
}

// SendData appends buf to the outbound byte queue, copying as many bytes as
// fit within SndBuf's capacity, and marks the write as pushed so it is not
// held back waiting for a fuller segment. Callers who instead write
// directly into SndBuf[len(SndBuf):cap(SndBuf)] to avoid the copy should
// call ExtendSndBufAfterWriting once done.
func (c *Connection) SendData(buf []byte) (int, error) {
	free := cap(c.SndBuf) - len(c.SndBuf)
	if free <= 0 {
		return 0, ErrBufferFull
	}
	n := min(free, len(buf))
	c.SndBuf = append(c.SndBuf, buf[:n]...)
	c.queuedForOutput()
	if n < len(buf) {
		return n, ErrBufferFull
	}
	return n, nil
}

// SendDataRef appends the bytes referenced by ref to the outbound queue
// without requiring the caller to materialize a contiguous slice first:
// scattered sources (a ring buffer's two halves, a chain of pooled
// segments) are consumed in place via the chain traversal.
func (c *Connection) SendDataRef(ref pbuf.Ref) (int, error) {
	free := cap(c.SndBuf) - len(c.SndBuf)
	if free <= 0 {
		return 0, ErrBufferFull
	}
	n := min(free, ref.Len)
	c.SndBuf = ref.Take(n).AppendTo(c.SndBuf)
	c.queuedForOutput()
	if n < ref.Len {
		return n, ErrBufferFull
	}
	return n, nil
}

// ExtendSndBufAfterWriting tells the connection n more bytes were written
// directly into SndBuf[len(SndBuf):cap(SndBuf)] and are now part of the
// queue.
func (c *Connection) ExtendSndBufAfterWriting(n int) {
	c.SndBuf = c.SndBuf[:len(c.SndBuf)+n]
	c.queuedForOutput()
}

// queuedForOutput advances the push index past every queued byte and asks
// the output pipeline to run.
func (c *Connection) queuedForOutput() {
	c.SndPshIndex = len(c.SndBuf)
	if c.pcb != nil {
		c.pcb.Flags |= FlagOutPending
	}
}

// ackData discards n acknowledged bytes from the front of the send queue,
// sliding the unsent region down and notifying the application that the
// bytes (and the buffer space they held) are done with.
func (c *Connection) ackData(n int) {
	if n <= 0 {
		return
	}
	c.SndBuf = c.SndBuf[:copy(c.SndBuf, c.SndBuf[n:])]
	c.SndBufCur -= n
	if c.SndPshIndex > n {
		c.SndPshIndex -= n
	} else {
		c.SndPshIndex = 0
	}
	if c.cb.OnDataSent != nil {
		c.cb.OnDataSent(n)
	}
}

// CloseSending marks the connection as having no more application data to
// send; a FIN is queued once SndBuf drains (the output pipeline commits it
// to the sequence space only after the last data byte has gone out).
func (c *Connection) CloseSending() {
	c.closingSend = true
	if c.pcb != nil {
		c.pcb.Flags |= FlagFinPending | FlagOutPending
	}
}

// AnnounceWindowUpdate forces a window re-announcement on the next output
// pass even if growth has not crossed WndAnnThreshold, used after the
// application frees a large chunk of receive buffer in one call.
func (c *Connection) AnnounceWindowUpdate() {
	if c.pcb != nil {
		c.pcb.Flags |= FlagRcvWndUpd | FlagOutPending
	}
}

// Reset abandons the connection immediately: the PCB, if still attached, is
// aborted with an RST to the peer and the handle is severed. OnAborted does
// not fire for a locally requested reset. Safe to call from inside a
// callback; the input pipeline detects the severance when the callback
// returns.
func (c *Connection) Reset() {
	p := c.pcb
	if p == nil {
		return
	}
	c.pcb = nil
	p.Conn = nil
	p.abortWithReset()
}

// Abandon severs the handle without killing the connection outright: the
// PCB keeps draining what it already owes the peer (any queued FIN) and the
// abandoned-PCB timeout reclaims it if the peer never finishes closing.
func (c *Connection) Abandon(now time.Time) {
	p := c.pcb
	if p == nil {
		return
	}
	c.pcb = nil
	p.Conn = nil
	if p.pool != nil {
		p.pool.updateLRU(p) // unreferenced again: back on the eviction list.
	}
	p.Flags |= FlagFinPending | FlagOutPending
	p.armAbortTimer(now)
	p.FlushTimers()
}
