package pcb

import "github.com/nilgrove/pcbstack/tcp"

// initialCwnd returns the RFC 5681 initial congestion window for a
// connection whose negotiated segment size is mss.
func initialCwnd(mss uint16) tcp.Size {
	switch {
	case mss > 2190:
		return tcp.Size(2 * mss)
	case mss > 1095:
		return tcp.Size(3 * mss)
	default:
		return tcp.Size(4 * mss)
	}
}

// initCongestion seeds congestion and RTT state for a freshly established
// connection. Runs from the input pipeline the moment the handshake
// completes or, for a passively accepted PCB whose Connection handle is
// bound after the fact, from NewConnection.
func (p *PCB) initCongestion() {
	c := p.Conn
	if c == nil {
		return
	}
	c.Ssthresh = ^tcp.Size(0) >> 1 // effectively unbounded until a loss occurs
	c.Cwnd = initialCwnd(p.SndMSS)
	c.CwndAcked = 0
	p.Flags |= FlagCwndInit
	p.RTO = p.pool.cfg.InitialRtxTime
}

// onConnectionUp runs once a connection reaches ESTABLISHED, from the input
// pipeline's SYN/SYN-ACK acceptance path.
func (p *PCB) onConnectionUp() {
	c := p.Conn
	if c == nil {
		return
	}
	p.initCongestion()
	if c.cb.OnEstablished != nil {
		c.cb.OnEstablished()
	}
}

// handleAcked applies the RFC 5681 congestion-window update for acked bytes
// of new data newly acknowledged by an incoming segment (0 if the segment
// was a pure duplicate ACK carrying no new ACK progress — callers should
// use handleDupAck for that case instead).
func (p *PCB) handleAcked(acked tcp.Size) {
	c := p.Conn
	if c == nil || acked == 0 {
		return
	}
	p.NumDupAck = 0
	if p.Flags.Has(FlagRecover) {
		p.handleRecoveryAck(acked)
		return
	}
	mss := tcp.Size(p.SndMSS)
	if c.Cwnd <= c.Ssthresh {
		// Slow start: grow by the number of bytes acked, capped at one MSS
		// per ACK so a single large cumulative ACK can't vault cwnd ahead
		// of what the peer has actually demonstrated it can absorb.
		grow := acked
		if grow > mss {
			grow = mss
		}
		c.Cwnd += grow
	} else {
		// Congestion avoidance: grow by roughly one MSS per RTT.
		c.CwndAcked += acked
		if c.CwndAcked >= c.Cwnd {
			c.CwndAcked -= c.Cwnd
			c.Cwnd += mss
			p.Flags |= FlagCwndIncrd
		}
	}
}

// handleRecoveryAck applies RFC 6582 NewReno partial/full-ACK handling
// while a fast-recovery episode (FlagRecover) is in progress.
func (p *PCB) handleRecoveryAck(acked tcp.Size) {
	c := p.Conn
	mss := tcp.Size(p.SndMSS)
	if !p.scb.SndUNA().LessThan(c.Recover) {
		// Full ACK: recovery ends; deflate cwnd to
		// min(ssthresh, max(flight, mss) + mss) so the first post-recovery
		// RTT doesn't burst a whole ssthresh of data at once.
		p.Flags &^= FlagRecover
		flight := p.scb.InFlight()
		if flight < mss {
			flight = mss
		}
		deflated := flight + mss
		if deflated > c.Ssthresh {
			deflated = c.Ssthresh
		}
		c.Cwnd = deflated
		return
	}
	// Partial ACK: retransmit the next unacked segment and deflate cwnd by
	// the amount just acked, adding back one MSS when at least a full
	// segment was covered (RFC 6582 step 4).
	deflate := acked
	if max := c.Cwnd - mss; deflate > max {
		deflate = max
	}
	c.Cwnd -= deflate
	if acked >= mss {
		c.Cwnd += mss
	}
	p.Flags |= FlagRtxPending | FlagOutPending
}

// handleDupAck processes one duplicate ACK (an ACK that acked no new data).
// Once FastRtxDupAcks duplicates have arrived outside of an existing
// recovery episode, it enters fast retransmit / fast recovery per RFC 5681
// section 3.2, returning true if a retransmission should be triggered now.
func (p *PCB) handleDupAck() (retransmitNow bool) {
	c := p.Conn
	if c == nil {
		return false
	}
	if p.Flags.Has(FlagRecover) {
		// Each additional duplicate ACK during recovery means another
		// segment left the network; inflate cwnd so new data can go out.
		c.Cwnd += tcp.Size(p.SndMSS)
		return false
	}
	p.NumDupAck++
	if p.NumDupAck < p.pool.cfg.FastRtxDupAcks {
		return false
	}
	mss := tcp.Size(p.SndMSS)
	half := p.scb.InFlight() / 2
	if half < 2*mss {
		half = 2 * mss
	}
	c.Ssthresh = half
	c.Cwnd = c.Ssthresh + tcp.Size(p.pool.cfg.FastRtxDupAcks)*mss
	c.Recover = p.scb.SndNXT()
	p.Flags |= FlagRecover
	return true
}

// handleRTOLoss applies the RFC 5681 timeout response: ssthresh is set to
// half the flight size (floored at 2*MSS) and cwnd collapses to one
// segment, restarting slow start from scratch.
func (p *PCB) handleRTOLoss() {
	c := p.Conn
	if c == nil {
		return
	}
	mss := tcp.Size(p.SndMSS)
	half := p.scb.InFlight() / 2
	if half < 2*mss {
		half = 2 * mss
	}
	c.Ssthresh = half
	c.Cwnd = mss
	c.CwndAcked = 0
	p.Flags &^= FlagRecover
	p.Flags |= FlagRTXActive
}

// handleIdleReset applies the cwnd reset performed when a connection has
// been idle for longer than its current RTO (RFC 5681 section 4.1): cwnd
// collapses back to the initial window since the network path state
// represented by the old cwnd can no longer be trusted.
func (p *PCB) handleIdleReset() {
	c := p.Conn
	if c == nil {
		return
	}
	c.Cwnd = initialCwnd(p.SndMSS)
	c.CwndAcked = 0
}
