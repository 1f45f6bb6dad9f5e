package pcb

import (
	"time"

	"github.com/nilgrove/pcbstack/tcp"
)

// OutSegment is one segment ready for transmission: the sequence-space
// envelope plus the payload bytes and, for the handshake segments, the
// options the peer must see (MSS and, once negotiated, window scale).
//
// Rtx marks a segment that re-covers sequence space already committed to
// the ControlBlock (a retransmission, a zero-window probe, or a bare
// window-update ACK): the caller must report it via [PCB.MarkRetransmitted]
// rather than [PCB.MarkSent], so the send cursor does not advance and no
// RTT sample is started on it (Karn's rule).
type OutSegment struct {
	Segment      tcp.Segment
	Payload      []byte
	Rtx          bool
	MSS          uint16 // non-zero only on SYN segments
	WndScale     uint8  // non-zero only on SYN segments that negotiate scaling
	SendWndScale bool
}

// Output computes the next segment this PCB wants to send, if any. New data
// and control segments are committed to the embedded ControlBlock's send
// sequence space via Send (advancing snd.NXT and retiring the matching
// pending flag) before being handed back; retransmissions bypass Send since
// their bytes were committed on first transmission. The caller is expected
// to call MarkSent (or MarkRetransmitted, per OutSegment.Rtx) once the
// segment has actually been handed to the network layer.
func (p *PCB) Output(now time.Time) (OutSegment, bool) {
	p.maybeQueueFIN()
	if p.Flags.Has(FlagSynPending) {
		p.Flags &^= FlagSynPending
		seg := tcp.Segment{SEQ: p.scb.ISS(), WND: p.scb.RecvWindow(), Flags: tcp.FlagSYN}
		p.startRTTMeasurement(now, p.scb.ISS())
		return OutSegment{Segment: seg, MSS: p.BaseSndMSS, SendWndScale: true, WndScale: p.RcvWndShift}, true
	}
	if p.Flags.Has(FlagRtxPending) {
		p.Flags &^= FlagRtxPending
		if out, ok := p.retransmitSegment(); ok {
			return out, true
		}
	}
	payloadLen := p.unsentLen()
	seg, ok := p.scb.PendingSegment(payloadLen)
	if !ok {
		if p.Flags.Has(FlagRcvWndUpd) && p.State() == tcp.StateEstablished {
			p.Flags &^= FlagRcvWndUpd
			seg = tcp.Segment{SEQ: p.scb.SndNXT(), ACK: p.scb.RecvNext(), WND: p.scb.RecvWindow(), Flags: tcp.FlagACK}
			return OutSegment{Segment: seg, Rtx: true}, true
		}
		if p.scb.SndWND() == 0 && p.Conn != nil && p.Conn.SndBufCur < len(p.Conn.SndBuf) && !p.RtxTimer().IsSet() {
			p.armRtxTimer(now) // zero window with data queued: probe after RTO.
		}
		return OutSegment{}, false
	}
	if seg.DATALEN > 0 && p.Conn != nil && p.Conn.SndPshIndex <= p.Conn.SndBufCur+int(seg.DATALEN) {
		seg.Flags |= tcp.FlagPSH
	}
	if seg.Flags.HasAny(tcp.FlagFIN) && seg.DATALEN > 0 {
		seg.Flags |= tcp.FlagPSH
	}
	if err := p.scb.Send(seg); err != nil {
		if p.pool != nil {
			p.pool.logerr("pcb:output-send-reject")
		}
		return OutSegment{}, false
	}
	out := OutSegment{Segment: seg}
	if seg.Flags.HasAny(tcp.FlagSYN) {
		out.MSS = p.BaseSndMSS
		out.SendWndScale = true
		out.WndScale = p.RcvWndShift
		p.startRTTMeasurement(now, seg.SEQ)
	}
	if seg.DATALEN > 0 && p.Conn != nil {
		start := p.Conn.SndBufCur
		out.Payload = p.Conn.SndBuf[start : start+int(seg.DATALEN)]
	}
	return out, true
}

// maybeQueueFIN commits the application's half-close to the ControlBlock
// once every queued byte has been handed to the network. The sequence-space
// validation rejects data sent after a FIN, so the FIN must trail the last
// data segment rather than being queued the moment the application closes.
func (p *PCB) maybeQueueFIN() {
	if !p.Flags.Has(FlagFinPending) || p.Flags.Has(FlagFinSent) {
		return
	}
	if c := p.Conn; c != nil && c.SndBufCur != len(c.SndBuf) {
		return
	}
	switch p.State() {
	case tcp.StateSynRcvd, tcp.StateEstablished, tcp.StateCloseWait:
		p.scb.Close()
	}
}

// retransmitSegment builds one segment re-covering the oldest unacked bytes
// at sequence snd_una without touching the ControlBlock's send state. In the
// handshake states the SYN or SYN-ACK itself is rebuilt. With nothing in
// flight and a closed peer window, a one-byte probe past the window is
// produced instead.
func (p *PCB) retransmitSegment() (OutSegment, bool) {
	switch p.State() {
	case tcp.StateSynSent:
		seg := tcp.Segment{SEQ: p.scb.ISS(), WND: p.scb.RecvWindow(), Flags: tcp.FlagSYN}
		return OutSegment{Segment: seg, Rtx: true, MSS: p.BaseSndMSS, SendWndScale: true, WndScale: p.RcvWndShift}, true
	case tcp.StateSynRcvd:
		seg := tcp.Segment{SEQ: p.scb.ISS(), ACK: p.scb.RecvNext(), WND: p.scb.RecvWindow(), Flags: tcp.FlagSYN | tcp.FlagACK}
		return OutSegment{Segment: seg, Rtx: true, MSS: p.SndMSS, SendWndScale: true, WndScale: p.RcvWndShift}, true
	}
	c := p.Conn
	var unacked int
	if c != nil {
		unacked = c.SndBufCur
	}
	n := unacked
	probe := false
	if n == 0 && c != nil && len(c.SndBuf) > 0 && p.scb.SndWND() == 0 {
		n, probe = 1, true
	}
	wnd := int(p.scb.SndWND())
	if wnd < 1 {
		wnd = 1
	}
	if n > wnd {
		n = wnd
	}
	if p.SndMSS > 0 && n > int(p.SndMSS) {
		n = int(p.SndMSS)
	}
	fin := p.Flags.Has(FlagFinSent) && !probe && n == unacked &&
		p.scb.InFlight() > tcp.Size(unacked)
	if n == 0 && !fin {
		return OutSegment{}, false
	}
	flags := tcp.FlagACK
	if fin {
		flags |= tcp.FlagFIN
	}
	if n > 0 && n == unacked {
		flags |= tcp.FlagPSH
	}
	seg := tcp.Segment{
		SEQ: p.scb.SndUNA(), ACK: p.scb.RecvNext(), WND: p.scb.RecvWindow(),
		Flags: flags, DATALEN: tcp.Size(n),
	}
	out := OutSegment{Segment: seg, Rtx: true}
	if n > 0 {
		out.Payload = c.SndBuf[:n]
	}
	return out, true
}

// unsentLen returns how many bytes of already-queued send data are both
// unsent and within the congestion window (cwnd minus bytes in flight),
// bounded to one MSS per segment. The peer-advertised send window is not
// applied here; the embedded ControlBlock's PendingSegment applies it.
// Data short of the push index and of a full MSS is held back while a FIN
// is not pending, so trailing sub-MSS writes coalesce before hitting the
// wire.
func (p *PCB) unsentLen() int {
	c := p.Conn
	if c == nil {
		return 0
	}
	queued := len(c.SndBuf) - c.SndBufCur
	if queued <= 0 {
		return 0
	}
	if !p.Flags.Has(FlagFinPending) {
		threshold := len(c.SndBuf) - c.SndPshIndex
		if m := int(p.SndMSS) - 1; threshold > m {
			threshold = m
		}
		if queued <= threshold {
			return 0
		}
	}
	allowed := c.Cwnd
	if infl := p.scb.InFlight(); infl < allowed {
		allowed -= infl
	} else {
		allowed = 0
	}
	if int(allowed) < queued {
		queued = int(allowed)
	}
	if p.SndMSS > 0 && queued > int(p.SndMSS) {
		queued = int(p.SndMSS)
	}
	return queued
}

// HasQueuedOutput reports whether another Output call could produce a
// segment: pending control flags, unsent in-window data, an unsent FIN, or
// a queued retransmission.
func (p *PCB) HasQueuedOutput() bool {
	if p.Flags.HasAny(FlagSynPending | FlagRtxPending) {
		return true
	}
	if p.scb.HasPending() {
		return true
	}
	if p.Flags.Has(FlagFinPending) && !p.Flags.Has(FlagFinSent) {
		return true
	}
	return p.unsentLen() > 0
}

// MarkSent records that n bytes of send-buffer data and, if fin is true, a
// FIN were handed to the network for the first time, advancing the local
// unsent cursor and arming an RTT sample.
func (p *PCB) MarkSent(now time.Time, seq tcp.Value, n int, fin bool) {
	if p.Conn != nil && n > 0 {
		p.Conn.SndBufCur += n
	}
	if fin {
		p.Flags |= FlagFinSent
	}
	if n > 0 || fin {
		p.startRTTMeasurement(now, seq)
	}
	p.armRtxTimer(now)
	p.armAbortTimer(now)
}

// MarkRetransmitted records that a retransmitted segment (or probe) was
// handed to the network: any in-progress RTT sample is discarded per Karn's
// rule, and the retransmission timer is re-armed for the backed-off RTO.
func (p *PCB) MarkRetransmitted(now time.Time) {
	p.clearRTTMeasurement()
	p.armRtxTimer(now)
}

// armRtxTimer (re)starts the retransmission timer for the oldest
// unacknowledged byte. With nothing in flight, no FIN owed, and an open
// peer window the timer is left unset (RFC 6298 section 5 rules 1-2); a
// zero window with data queued keeps it armed so probes go out.
func (p *PCB) armRtxTimer(now time.Time) {
	queuedOnZeroWnd := p.scb.SndWND() == 0 && p.Conn != nil && len(p.Conn.SndBuf) > 0
	if p.scb.InFlight() == 0 && !p.Flags.Has(FlagFinPending) && !queuedOnZeroWnd {
		p.RtxTimer().Unset()
		return
	}
	p.RtxTimer().SetRelative(now, p.RTO)
}

// HandleRtxTimeout is called by the engine's timer sweep when RtxTimer
// fires. It applies the RFC 5681 loss response, queues the oldest unacked
// data for retransmission on the next Output call, and backs off RTO per
// RFC 6298. A timeout with nothing in flight and a zero peer window is a
// window probe, not a loss, and leaves the congestion state alone.
func (p *PCB) HandleRtxTimeout(now time.Time) {
	if p.Flags.Has(FlagIdleTimer) {
		p.handleIdleReset()
		p.Flags &^= FlagIdleTimer
		p.RtxTimer().Unset()
		return
	}
	if p.scb.InFlight() == 0 && p.scb.SndWND() != 0 && !p.Flags.Has(FlagFinPending) {
		p.RtxTimer().Unset()
		return
	}
	p.clearRTTMeasurement()
	if p.scb.InFlight() > 0 {
		p.handleRTOLoss()
	}
	p.backoffRTO()
	p.Flags |= FlagRtxPending | FlagOutPending
	p.RtxTimer().SetRelative(now, p.RTO)
}

// ScheduleIdleReset arms the idle-cwnd-reset timer used when a connection
// has had nothing in flight for a full RTO: the next timeout will reset
// cwnd to its initial value rather than treat the idle gap as a loss.
func (p *PCB) ScheduleIdleReset(now time.Time) {
	if p.scb.InFlight() != 0 {
		return
	}
	p.Flags |= FlagIdleTimer
	p.RtxTimer().SetRelative(now, p.RTO)
}

// ApplyPMTU reacts to a lowered path MTU (from an ICMP Fragmentation
// Needed / Packet Too Big notification) by shrinking SndMSS (not below
// MinAllowedMss) and clamping cwnd down to at most one new MSS.
func (p *PCB) ApplyPMTU(newMTU uint16) {
	const ip4HeaderLen = 20
	const tcpHeaderLen = 20
	newMSS := newMTU - ip4HeaderLen - tcpHeaderLen
	if newMSS >= p.BaseSndMSS {
		return
	}
	if newMSS < p.pool.cfg.MinAllowedMss {
		newMSS = p.pool.cfg.MinAllowedMss
	}
	p.SndMSS = newMSS
	if c := p.Conn; c != nil {
		if c.Cwnd > tcp.Size(newMSS) {
			c.Cwnd = tcp.Size(newMSS)
		}
		c.PMTU = newMTU
	}
}
