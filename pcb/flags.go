package pcb

// Flags is the per-PCB bitfield of housekeeping flags distinct from the
// on-the-wire TCP flags (tcp.Flags) carried by a segment.
type Flags uint32

const (
	// FlagACKPending indicates an empty ACK must be sent before the PCB's
	// stack frame returns.
	FlagACKPending Flags = 1 << iota
	// FlagOutPending indicates the output pipeline must run before the
	// PCB's stack frame returns.
	FlagOutPending
	// FlagFinSent indicates a FIN has been handed to the network at least once.
	FlagFinSent
	// FlagFinPending indicates sending has been closed and a FIN is queued
	// to go out once prior data has been sent.
	FlagFinPending
	// FlagRTTPending indicates an RTT measurement is in progress.
	FlagRTTPending
	// FlagRTTValid indicates srtt/rttvar hold a real estimate rather than
	// their zero-value initial state.
	FlagRTTValid
	// FlagCwndIncrd indicates cwnd was grown by a congestion-avoidance
	// increment since the last completed RTT sample; it is cleared when an
	// RTT sample completes. Congestion avoidance does not consult it.
	FlagCwndIncrd
	// FlagRTXActive indicates a retransmission-driven recovery is underway
	// (set on an RTO loss, cleared when an ACK covers new data).
	FlagRTXActive
	// FlagRecover indicates a fast-recovery episode is in progress; Recover
	// holds the sequence number marking its end.
	FlagRecover
	// FlagIdleTimer indicates the RtxTimer is currently serving as the
	// idle-cwnd-reset timer rather than a retransmission timer.
	FlagIdleTimer
	// FlagWndScale indicates the window-scale option was negotiated with
	// the peer and SndWndShift/RcvWndShift apply.
	FlagWndScale
	// FlagCwndInit indicates the congestion state (cwnd, ssthresh) has been
	// seeded by initCongestion. It stays set for the life of the PCB.
	FlagCwndInit
	// FlagOutRetry indicates the OutputTimer is armed to retry a send that
	// failed transiently (buffer full, no route, no ARP entry yet).
	FlagOutRetry
	// FlagRcvWndUpd indicates the application asked for an out-of-band
	// window re-announcement via [Connection.AnnounceWindowUpdate].
	FlagRcvWndUpd
	// FlagFinRcvd indicates the peer's FIN has already been delivered to
	// the application, so a retransmitted FIN must not be delivered twice.
	FlagFinRcvd
	// FlagAcceptPending indicates the PCB reached ESTABLISHED via a
	// Listener but has not yet been handed to the accept queue: it is
	// waiting for either its first data/FIN or its accept deadline before
	// becoming dispatchable (see Listener.NotifyEstablished).
	FlagAcceptPending
	// FlagSynPending indicates an actively-opened PCB has committed its
	// initial SYN to the ControlBlock's send sequence space (so the
	// handshake can be validated against the peer's ACK immediately) but
	// has not yet had that SYN's bytes produced for the network by
	// Output, which PendingSegment alone cannot surface since nothing
	// queued it through the pending-flags mechanism the rcv* handlers use.
	FlagSynPending
	// FlagRtxPending indicates the next output pass must re-emit the oldest
	// unacknowledged segment (or a zero-window probe) instead of new data.
	// Set by the retransmission timer, by fast retransmit, and by
	// partial-ACK handling during fast recovery.
	FlagRtxPending
)

// Has reports whether every bit set in want is also set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// HasAny reports whether any bit set in want is also set in f.
func (f Flags) HasAny(want Flags) bool { return f&want != 0 }
