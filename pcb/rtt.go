package pcb

import (
	"time"

	"github.com/nilgrove/pcbstack/tcp"
)

// startRTTMeasurement arms a round-trip-time sample on seq if no
// measurement is already in progress (RFC 6298 allows only one Karn-style
// sample in flight at a time; overlapping samples are simply skipped rather
// than queued).
func (p *PCB) startRTTMeasurement(now time.Time, seq tcp.Value) {
	if p.Flags.Has(FlagRTTPending) {
		return
	}
	p.Flags |= FlagRTTPending
	p.RTTTestTime = now
	if p.Conn != nil {
		p.Conn.RTTTestSeq = seq
	}
}

// clearRTTMeasurement aborts any in-progress sample, used when a segment
// carrying the measured sequence number had to be retransmitted (Karn's
// algorithm: a retransmitted segment's ACK can't be trusted to time the
// original transmission).
func (p *PCB) clearRTTMeasurement() {
	p.Flags &^= FlagRTTPending
}

// sampleRTT feeds one round-trip measurement into the SRTT/RTTVAR
// estimators per RFC 6298 section 2, and recomputes RTO from them.
func (p *PCB) sampleRTT(now time.Time) {
	if !p.Flags.Has(FlagRTTPending) {
		return
	}
	p.Flags &^= FlagRTTPending
	sample := now.Sub(p.RTTTestTime)
	if sample <= 0 {
		return
	}
	c := p.Conn
	if c == nil {
		return
	}
	if !p.Flags.Has(FlagRTTValid) {
		// RFC 6298 section 2.2: first measurement seeds the estimators directly.
		c.Srtt = sample
		c.Rttvar = sample / 2
		p.Flags |= FlagRTTValid
	} else {
		delta := c.Srtt - sample
		if delta < 0 {
			delta = -delta
		}
		c.Rttvar = (3*c.Rttvar + delta) / 4
		c.Srtt = (7*c.Srtt + sample) / 8
	}
	p.recomputeRTO()
}

// recomputeRTO derives RTO from the current SRTT/RTTVAR per RFC 6298's
// rto = srtt + max(G, 4*rttvar) formula (G, the clock granularity, is taken
// as 1ms since that's the coarsest a [time.Timer]-backed implementation
// reasonably claims), clamped to [MinRtxTime, MaxRtxTime].
func (p *PCB) recomputeRTO() {
	c := p.Conn
	if c == nil {
		return
	}
	const clockGranularity = time.Millisecond
	variance := 4 * c.Rttvar
	if variance < clockGranularity {
		variance = clockGranularity
	}
	rto := c.Srtt + variance
	cfg := p.pool.cfg
	if rto < cfg.MinRtxTime {
		rto = cfg.MinRtxTime
	} else if rto > cfg.MaxRtxTime {
		rto = cfg.MaxRtxTime
	}
	p.RTO = rto
}

// backoffRTO doubles RTO after a retransmission timeout, per RFC 6298
// section 5.5's exponential backoff, without touching SRTT/RTTVAR (the
// sample that would have validated them never arrived).
func (p *PCB) backoffRTO() {
	p.RTO *= 2
	if p.RTO > p.pool.cfg.MaxRtxTime {
		p.RTO = p.pool.cfg.MaxRtxTime
	}
}
