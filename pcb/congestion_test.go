package pcb

import (
	"testing"
	"time"

	"github.com/nilgrove/pcbstack/tcp"
)

func newTestPCB(t *testing.T) (*PCB, *Connection) {
	t.Helper()
	pool := NewPool(testPoolConfig())
	p, err := pool.AllocatePCB(time.Unix(0, 0))
	if err != nil {
		t.Fatalf("AllocatePCB: %v", err)
	}
	p.SndMSS = 1460
	p.BaseSndMSS = 1460
	conn := &Connection{pcb: p}
	p.Conn = conn
	return p, conn
}

func TestInitialCwndRFC5681Bands(t *testing.T) {
	cases := []struct {
		mss  uint16
		want tcp.Size
	}{
		{mss: 536, want: 4 * 536},
		{mss: 1460, want: 3 * 1460},
		{mss: 2200, want: 2 * 2200},
	}
	for _, c := range cases {
		got := initialCwnd(c.mss)
		if got != c.want {
			t.Errorf("initialCwnd(%d) = %d, want %d", c.mss, got, c.want)
		}
	}
}

func TestHandleAckedSlowStart(t *testing.T) {
	p, conn := newTestPCB(t)
	conn.Ssthresh = 100000
	conn.Cwnd = tcp.Size(p.SndMSS)

	p.handleAcked(tcp.Size(p.SndMSS))
	if conn.Cwnd != 2*tcp.Size(p.SndMSS) {
		t.Fatalf("slow start should grow cwnd by one MSS per ACKed MSS, got %d", conn.Cwnd)
	}
}

func TestHandleAckedSlowStartCapsGrowthAtOneMSSPerAck(t *testing.T) {
	p, conn := newTestPCB(t)
	conn.Ssthresh = 100000
	conn.Cwnd = tcp.Size(p.SndMSS)

	p.handleAcked(tcp.Size(p.SndMSS) * 4)
	if conn.Cwnd != 2*tcp.Size(p.SndMSS) {
		t.Fatalf("a single ACK must not grow cwnd by more than one MSS in slow start, got %d", conn.Cwnd)
	}
}

func TestHandleAckedCongestionAvoidance(t *testing.T) {
	p, conn := newTestPCB(t)
	mss := tcp.Size(p.SndMSS)
	conn.Cwnd = 10 * mss
	conn.Ssthresh = 1 // already past slow start

	for i := tcp.Size(0); i < 10; i++ {
		p.handleAcked(mss)
	}
	if conn.Cwnd != 11*mss {
		t.Fatalf("congestion avoidance should grow cwnd by one MSS per cwnd-worth acked, got %d want %d", conn.Cwnd, 11*mss)
	}
}

func TestHandleDupAckEntersFastRecovery(t *testing.T) {
	p, conn := newTestPCB(t)
	conn.Cwnd = 10 * tcp.Size(p.SndMSS)
	p.pool.cfg.FastRtxDupAcks = 3

	for i := 0; i < 2; i++ {
		if p.handleDupAck() {
			t.Fatal("fast retransmit should not trigger before the configured threshold")
		}
	}
	if !p.handleDupAck() {
		t.Fatal("fast retransmit should trigger on the threshold-th duplicate ACK")
	}
	if !p.Flags.Has(FlagRecover) {
		t.Fatal("entering fast retransmit should set FlagRecover")
	}
}

func TestHandleRTOLossHalvesAndCollapses(t *testing.T) {
	p, conn := newTestPCB(t)
	conn.Cwnd = 20 * tcp.Size(p.SndMSS)
	p.handleRTOLoss()
	if conn.Cwnd != tcp.Size(p.SndMSS) {
		t.Fatalf("RTO loss should collapse cwnd to one MSS, got %d", conn.Cwnd)
	}
	if !p.Flags.Has(FlagRTXActive) {
		t.Fatal("RTO loss should set FlagRTXActive")
	}
}
