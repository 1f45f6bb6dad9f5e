// Package pcb implements the TCP Protocol Control Block: the fixed pool of
// per-connection state records, the active/time-wait lookup, the
// unreferenced-LRU eviction list, and the two pipelines (input and output)
// that drive a PCB's state machine, congestion control, and retransmission.
// It builds on top of the sequence-number engine in the sibling tcp package
// (tcp.ControlBlock implements the RFC 9293 send/receive sequence spaces and
// per-state segment acceptance rules); this package adds everything that
// engine does not: MSS/PMTU tracking, RFC 5681 congestion control, RFC 6298
// RTT/RTO estimation, fast retransmit/recovery, out-of-order buffering, and
// the pool/eviction/listen-queue machinery around a fixed array of PCBs.
package pcb

import "time"

// Config bounds the resources a [Pool] may use and the timing constants its
// pipelines use. Field names and defaults follow the engine's configuration
// surface.
type Config struct {
	// TcpTTL is the IPv4 TTL used on outgoing segments.
	TcpTTL uint8
	// NumPCBs is the fixed size of the PCB pool.
	NumPCBs int
	// NumOosSegs bounds the out-of-order ring per connection (max 15).
	NumOosSegs int
	// EphemeralPortFirst/EphemeralPortLast bound the local port allocator.
	EphemeralPortFirst, EphemeralPortLast uint16
	// RcvWndShift is the default receive window scale exponent (max 14).
	RcvWndShift uint8
	// FastRtxDupAcks is the duplicate-ACK count that triggers fast retransmit.
	FastRtxDupAcks uint8
	// WndAnnThreshold is the minimum window growth, in bytes, required
	// before re-announcing an enlarged receive window (reduces SWS).
	WndAnnThreshold uint16
	// MinAllowedMss is the floor below which snd_mss is never clamped,
	// regardless of what the peer or PMTU feedback suggests.
	MinAllowedMss uint16
	// ListenRxBufferSize bounds the bytes a queued-but-unaccepted
	// connection may buffer ahead of the application's Accept call.
	ListenRxBufferSize int

	OutputTimerTicks      time.Duration
	OutputRetryFullTicks  time.Duration
	OutputRetryOtherTicks time.Duration
	InitialRtxTime        time.Duration
	MinRtxTime            time.Duration
	MaxRtxTime            time.Duration
	TimeWaitTime          time.Duration
	AbandonedTimeout      time.Duration
	SynSentTimeout        time.Duration
	SynRcvdTimeout        time.Duration
}

// DefaultConfig returns the configuration named in the engine's enumerated
// option list, with its documented defaults.
func DefaultConfig() Config {
	return Config{
		TcpTTL:                64,
		NumPCBs:                32,
		NumOosSegs:             4,
		EphemeralPortFirst:     49152,
		EphemeralPortLast:      65535,
		RcvWndShift:            6,
		FastRtxDupAcks:         3,
		WndAnnThreshold:        2700,
		MinAllowedMss:          536, // MinMTU (576) - 40 bytes of IPv4+TCP headers: RFC 1122's 536 floor
		ListenRxBufferSize:     1460,
		OutputTimerTicks:       500 * time.Microsecond,
		OutputRetryFullTicks:   100 * time.Millisecond,
		OutputRetryOtherTicks:  2 * time.Second,
		InitialRtxTime:         1 * time.Second,
		MinRtxTime:             250 * time.Millisecond,
		MaxRtxTime:             60 * time.Second,
		TimeWaitTime:           120 * time.Second,
		AbandonedTimeout:       30 * time.Second,
		SynSentTimeout:         30 * time.Second,
		SynRcvdTimeout:         20 * time.Second,
	}
}
