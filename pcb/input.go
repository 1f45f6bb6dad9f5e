package pcb

import (
	"errors"
	"net"
	"time"

	"github.com/nilgrove/pcbstack/tcp"
)

// HandleSegment processes one incoming segment already validated at the IP
// layer (checksum, 4-tuple match). It buffers segments that arrive ahead of
// rcv_nxt instead of handing them to the embedded [tcp.ControlBlock], which
// only accepts the next expected sequence number, draining the
// out-of-order ring as each gap closes.
func (p *PCB) HandleSegment(now time.Time, seg tcp.Segment, payload []byte) error {
	if p.pool != nil {
		p.pool.updateLRU(p)
	}
	rcvNxt := p.scb.RecvNext()
	if seg.DATALEN > 0 && seg.SEQ != rcvNxt && !p.scb.State().IsPreestablished() && p.scb.State() != tcp.StateClosed {
		if seg.SEQ.InWindow(rcvNxt, p.scb.RecvWindow()) {
			fin := seg.Flags.HasAny(tcp.FlagFIN)
			// Whether buffered or dropped for lack of a slot, the duplicate
			// ACK below tells a fast-retransmit-capable peer where the gap
			// starts; a dropped segment is the peer's retransmit timer's
			// problem.
			p.ooSegBuf.insert(seg.SEQ, seg.WND, fin, payload)
			p.Flags |= FlagACKPending | FlagOutPending
			return nil
		}
	}
	return p.applySequential(now, seg, payload)
}

// applySequential hands one in-order segment to the embedded ControlBlock,
// applies the resulting congestion/RTT bookkeeping, delivers payload to the
// application, and then drains any out-of-order ranges that the advance
// just made contiguous.
func (p *PCB) applySequential(now time.Time, seg tcp.Segment, payload []byte) error {
	prevUNA := p.scb.SndUNA()
	prevState := p.scb.State()
	hadAck := seg.Flags.HasAny(tcp.FlagACK)

	err := p.scb.Recv(seg)
	if errors.Is(err, net.ErrClosed) {
		// Peer RST on a synchronized connection.
		p.teardownOnRemoteClose(true)
		return nil
	}
	if errors.Is(err, tcp.ErrDropSegment) && prevState.IsPreestablished() && p.scb.State() == tcp.StateListen {
		// Peer RST aborted the handshake; the ControlBlock re-listens but
		// this PCB belongs to a pool, not a socket, so recycle it.
		p.teardownOnRemoteClose(true)
		return nil
	}
	if err != nil && !errors.Is(err, tcp.ErrDropSegment) {
		return err
	}
	wasDuplicate := errors.Is(err, tcp.ErrDropSegment) && hadAck &&
		seg.ACK == prevUNA && seg.DATALEN == 0 &&
		seg.WND == p.scb.SndWND() && p.scb.InFlight() > 0

	if hadAck {
		acked := tcp.Sizeof(prevUNA, p.scb.SndUNA())
		if acked != 0 {
			p.Flags &^= FlagRTXActive
			if p.Flags.Has(FlagRTTPending) && p.Conn != nil && !p.scb.SndUNA().LessThan(p.Conn.RTTTestSeq+1) {
				p.sampleRTT(now)
				p.Flags &^= FlagCwndIncrd
			}
			p.handleAcked(acked)
			if c := p.Conn; c != nil {
				dataAcked := int(acked)
				if dataAcked > c.SndBufCur {
					dataAcked = c.SndBufCur // SYN/FIN sequence space is not buffer bytes.
				}
				c.ackData(dataAcked)
			}
			p.armRtxTimer(now)
		} else if wasDuplicate {
			if p.handleDupAck() {
				p.Flags |= FlagRtxPending | FlagOutPending
			}
		} else if !p.RtxTimer().IsSet() {
			p.armRtxTimer(now) // e.g. the window just closed with data queued.
		}
	}

	if p.scb.State() == tcp.StateClosed {
		// The close handshake completed on both ends (LAST_ACK's final ACK).
		p.teardownOnRemoteClose(false)
		return nil
	}

	if prevState.IsPreestablished() && p.scb.State() == tcp.StateEstablished {
		p.onConnectionUp()
		if p.Listener != nil {
			p.Listener.NotifyEstablished(now, p)
		}
		if p.scb.State() == tcp.StateClosed {
			return nil // a callback aborted the PCB; it is already recycled.
		}
	}

	if p.Flags.Has(FlagAcceptPending) && p.Listener != nil && (seg.DATALEN > 0 || seg.Flags.HasAny(tcp.FlagFIN)) {
		p.Listener.notifyFirstData(now, p)
	}

	if err == nil && seg.DATALEN > 0 {
		if p.Conn != nil {
			p.Conn.deliver(payload)
			p.maybeAnnounceWindow()
		} else if p.Listener != nil {
			p.Listener.stashInitialData(p, payload)
		}
	}
	if err == nil && seg.Flags.HasAny(tcp.FlagFIN) && p.Conn != nil && !p.Flags.Has(FlagFinRcvd) {
		p.Flags |= FlagFinRcvd
		p.Conn.deliverFIN()
	}
	if p.scb.State() == tcp.StateClosed {
		return nil // a callback aborted the PCB; it is already recycled.
	}

	p.drainOutOfOrder(now)
	p.armAbortTimer(now)
	p.Flags |= FlagACKPending | FlagOutPending
	return nil
}

// drainOutOfOrder repeatedly applies any buffered range that now starts at
// rcv_nxt, following the chain as each application advances rcv_nxt again.
// The replayed segment carries the current acknowledgment state, not the
// stale ACK/window captured when the range was buffered, so the send side's
// snd_una and snd_wnd never move backwards.
func (p *PCB) drainOutOfOrder(now time.Time) {
	for {
		rng, ok := p.ooSegBuf.takeNext(p.scb.RecvNext())
		if !ok {
			return
		}
		flags := tcp.FlagACK
		if rng.fin {
			flags |= tcp.FlagFIN
		}
		seg := tcp.Segment{
			SEQ: rng.seq, ACK: p.scb.SndUNA(), WND: p.scb.SndWND(),
			DATALEN: tcp.Size(len(rng.payload)), Flags: flags,
		}
		p.applySequential(now, seg, rng.payload)
	}
}

// maybeAnnounceWindow raises RcvAnnWnd to the full available receive
// buffer and flags an announcement once the growth since the last
// announcement crosses WndAnnThreshold, avoiding silly-window-syndrome
// from re-announcing every tiny increment as the application consumes
// data in small reads.
func (p *PCB) maybeAnnounceWindow() {
	if p.Conn == nil || p.pool == nil {
		return
	}
	free := p.Conn.recvFree()
	newWnd := uint16(free)
	if int(newWnd) != free {
		newWnd = ^uint16(0)
	}
	if newWnd > p.RcvAnnWnd && newWnd-p.RcvAnnWnd >= p.pool.cfg.WndAnnThreshold {
		p.RcvAnnWnd = newWnd
		// The stored window is the unscaled value; wire encoding divides by
		// 1<<RcvWndShift when the window-scale option was negotiated.
		p.scb.SetRecvWindow(tcp.Size(newWnd))
		p.Flags |= FlagRcvWndUpd | FlagOutPending
	}
}
