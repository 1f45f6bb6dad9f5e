package pcb

import (
	"testing"
	"time"
)

func TestSampleRTTSeedsEstimators(t *testing.T) {
	p, conn := newTestPCB(t)
	start := time.Unix(100, 0)
	p.startRTTMeasurement(start, 1)
	if !p.Flags.Has(FlagRTTPending) {
		t.Fatal("startRTTMeasurement should set FlagRTTPending")
	}

	sample := 200 * time.Millisecond
	p.sampleRTT(start.Add(sample))

	if p.Flags.Has(FlagRTTPending) {
		t.Fatal("sampleRTT should clear FlagRTTPending")
	}
	if !p.Flags.Has(FlagRTTValid) {
		t.Fatal("first sample should mark the estimators valid")
	}
	if conn.Srtt != sample {
		t.Fatalf("first sample should seed SRTT directly, got %v want %v", conn.Srtt, sample)
	}
	if conn.Rttvar != sample/2 {
		t.Fatalf("first sample should seed RTTVAR to half the sample, got %v want %v", conn.Rttvar, sample/2)
	}
	if p.RTO < conn.Srtt {
		t.Fatalf("RTO must be at least SRTT, got RTO=%v SRTT=%v", p.RTO, conn.Srtt)
	}
}

func TestSampleRTTUpdatesWithKarnWeights(t *testing.T) {
	p, conn := newTestPCB(t)
	conn.Srtt = 100 * time.Millisecond
	conn.Rttvar = 50 * time.Millisecond
	p.Flags |= FlagRTTValid

	start := time.Unix(0, 0)
	p.startRTTMeasurement(start, 1)
	sample := 140 * time.Millisecond
	p.sampleRTT(start.Add(sample))

	wantRttvar := (3*(50*time.Millisecond) + 40*time.Millisecond) / 4
	wantSrtt := (7*(100*time.Millisecond) + sample) / 8
	if conn.Rttvar != wantRttvar {
		t.Fatalf("RTTVAR = %v, want %v", conn.Rttvar, wantRttvar)
	}
	if conn.Srtt != wantSrtt {
		t.Fatalf("SRTT = %v, want %v", conn.Srtt, wantSrtt)
	}
}

func TestSampleRTTIgnoredWithoutPendingMeasurement(t *testing.T) {
	p, conn := newTestPCB(t)
	conn.Srtt = 100 * time.Millisecond
	p.sampleRTT(time.Unix(1, 0))
	if conn.Srtt != 100*time.Millisecond {
		t.Fatal("sampleRTT with no pending measurement must not touch the estimators")
	}
}

func TestClearRTTMeasurementKarnsRetransmit(t *testing.T) {
	p, _ := newTestPCB(t)
	p.startRTTMeasurement(time.Unix(0, 0), 1)
	p.clearRTTMeasurement()
	if p.Flags.Has(FlagRTTPending) {
		t.Fatal("clearRTTMeasurement should unset FlagRTTPending so a retransmitted segment's ACK is never sampled")
	}
}

func TestRTOClampedToConfigBounds(t *testing.T) {
	p, conn := newTestPCB(t)
	conn.Srtt = 0
	conn.Rttvar = 0
	p.recomputeRTO()
	if p.RTO != p.pool.cfg.MinRtxTime {
		t.Fatalf("RTO below MinRtxTime should clamp up, got %v want %v", p.RTO, p.pool.cfg.MinRtxTime)
	}

	conn.Srtt = 10 * time.Minute
	p.recomputeRTO()
	if p.RTO != p.pool.cfg.MaxRtxTime {
		t.Fatalf("RTO above MaxRtxTime should clamp down, got %v want %v", p.RTO, p.pool.cfg.MaxRtxTime)
	}
}

func TestBackoffRTODoublesAndClamps(t *testing.T) {
	p, _ := newTestPCB(t)
	p.RTO = p.pool.cfg.MaxRtxTime / 2
	p.backoffRTO()
	if p.RTO != p.pool.cfg.MaxRtxTime {
		t.Fatalf("doubling past MaxRtxTime should clamp, got %v", p.RTO)
	}

	p.RTO = 100 * time.Millisecond
	p.backoffRTO()
	if p.RTO != 200*time.Millisecond {
		t.Fatalf("backoffRTO should double RTO, got %v", p.RTO)
	}
}
