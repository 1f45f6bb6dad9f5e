package pcb

import (
	"testing"
	"time"

	"github.com/nilgrove/pcbstack/tcp"
)

func TestListenerSynchronousHandoffWithNoQueue(t *testing.T) {
	pool := NewPool(testPoolConfig())
	p, _ := pool.AllocatePCB(time.Unix(0, 0))

	var delivered *PCB
	l := NewListener(pool, [4]byte{}, 80, 0, 0, 0, func(pc *PCB) { delivered = pc })

	l.deliver(time.Unix(0, 0), p, nil)
	if delivered != p {
		t.Fatal("a zero-size queue should hand the PCB to onEstablished synchronously")
	}
}

func TestListenerQueueFIFO(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 2, time.Minute, nil)

	p1, _ := pool.AllocatePCB(time.Unix(0, 0))
	p2, _ := pool.AllocatePCB(time.Unix(0, 0))
	l.deliver(time.Unix(0, 0), p1, nil)
	l.deliver(time.Unix(0, 0), p2, nil)

	got, _, ok := l.Accept()
	if !ok || got != p1 {
		t.Fatal("Accept should return connections in arrival order")
	}
	got, _, ok = l.Accept()
	if !ok || got != p2 {
		t.Fatal("Accept should return connections in arrival order")
	}
	if _, _, ok := l.Accept(); ok {
		t.Fatal("Accept on an empty queue should report false")
	}
}

func TestListenerExpireQueueAbortsStaleEntries(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 2, time.Second, nil)
	p, _ := pool.AllocatePCB(time.Unix(0, 0))
	p.scb.Open(1, 4096)

	start := time.Unix(0, 0)
	l.deliver(start, p, nil)
	l.ExpireQueue(start.Add(500 * time.Millisecond))
	if _, _, ok := l.Accept(); !ok {
		t.Fatal("entry should still be queued before its deadline")
	}

	p2, _ := pool.AllocatePCB(start)
	p2.scb.Open(1, 4096)
	l.deliver(start, p2, nil)
	l.ExpireQueue(start.Add(2 * time.Second))
	if _, _, ok := l.Accept(); ok {
		t.Fatal("entry past its deadline should have been expired, not delivered")
	}
}

// TestListenerQueueCapacityStableAcrossPops guards against the reslicing bug
// where repeatedly popping via queue[1:] shrinks cap(queue) until it reaches
// 0 and deliver mistakes a drained queue for "no queue configured".
func TestListenerQueueCapacityStableAcrossPops(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 2, time.Minute, nil)

	for i := 0; i < 10; i++ {
		p, err := pool.AllocatePCB(time.Unix(0, 0))
		if err != nil {
			t.Fatalf("AllocatePCB: %v", err)
		}
		l.deliver(time.Unix(0, 0), p, nil)
		if got, _, ok := l.Accept(); !ok || got != p {
			t.Fatalf("round %d: Accept should return the just-delivered PCB", i)
		}
		pool.release(p)
	}
	if l.queue.cap() != 2 {
		t.Fatalf("queue capacity should stay fixed at 2 after repeated pops, got %d", l.queue.cap())
	}

	var delivered *PCB
	l2 := NewListener(pool, [4]byte{}, 81, 0, 0, 0, func(pc *PCB) { delivered = pc })
	p, _ := pool.AllocatePCB(time.Unix(0, 0))
	l2.deliver(time.Unix(0, 0), p, nil)
	if delivered != p {
		t.Fatal("a genuinely zero-size queue should still hand off synchronously, unaffected by ring changes")
	}
}

func TestListenerNotifyEstablishedWaitsForFirstData(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 2, time.Minute, nil)
	p, _ := pool.AllocatePCB(time.Unix(0, 0))
	p.Listener = l

	now := time.Unix(0, 0)
	l.NotifyEstablished(now, p)
	if !p.Flags.Has(FlagAcceptPending) {
		t.Fatal("PCB should be parked pending first data, not dispatched yet")
	}
	if _, _, ok := l.Accept(); ok {
		t.Fatal("Accept should see nothing until first data arrives or the deadline passes")
	}

	l.notifyFirstData(now.Add(time.Millisecond), p)
	if p.Flags.Has(FlagAcceptPending) {
		t.Fatal("first data should clear the pending flag")
	}
	if got, _, ok := l.Accept(); !ok || got != p {
		t.Fatal("first data should promote the PCB straight to the accept queue")
	}
}

func TestListenerExpirePendingDispatchesOnTimeout(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 2, time.Second, nil)
	p, _ := pool.AllocatePCB(time.Unix(0, 0))
	p.Listener = l

	start := time.Unix(0, 0)
	l.NotifyEstablished(start, p)
	l.ExpirePending(start.Add(2 * time.Second))
	if p.Flags.Has(FlagAcceptPending) {
		t.Fatal("expiry should clear the pending flag")
	}
	if _, _, ok := l.Accept(); !ok {
		t.Fatal("a pending connection that timed out waiting for data should still reach the accept queue")
	}
}

func TestListenerQueueRetainsInitialData(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 2, time.Minute, nil)
	p, _ := pool.AllocatePCB(time.Unix(0, 0))
	p.Listener = l

	now := time.Unix(0, 0)
	l.NotifyEstablished(now, p)
	l.stashInitialData(p, []byte("early"))
	l.notifyFirstData(now, p)

	got, initial, ok := l.Accept()
	if !ok || got != p {
		t.Fatal("connection should be accepted once first data arrives")
	}
	if string(initial) != "early" {
		t.Fatalf("initial data = %q, want %q", initial, "early")
	}
}

func TestListenerStashBoundedByRxBufferSize(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 1, time.Minute, nil)
	l.rxBufSize = 4
	p, _ := pool.AllocatePCB(time.Unix(0, 0))
	p.Listener = l

	now := time.Unix(0, 0)
	l.NotifyEstablished(now, p)
	l.stashInitialData(p, []byte("abcdefgh"))

	initial := l.removePending(p)
	if string(initial) != "abcd" {
		t.Fatalf("stash = %q, want truncated to the 4-byte entry buffer", initial)
	}
}

// TestListenerQueueFullDropIsQuiet pins the capacity boundary case: a full
// queue of fresh (non-expired) entries drops the overflowing connection
// with an RST-less reset, never an RST on the wire.
func TestListenerQueueFullDropIsQuiet(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 1, time.Minute, nil)
	now := time.Unix(0, 0)

	p1, _ := pool.AllocatePCB(now)
	p1.scb.Open(1, 4096)
	l.deliver(now, p1, nil)

	p2, _ := pool.AllocatePCB(now)
	p2.scb.Open(2, 4096)
	l.deliver(now, p2, nil) // queue full of fresh entries: silent drop

	if p2.State() != tcp.StateClosed {
		t.Fatal("overflowing connection should be torn down")
	}
	if got := pool.DrainPendingResets(); len(got) != 0 {
		t.Fatalf("a capacity drop must not queue an RST, got %d", len(got))
	}
	if got, _, ok := l.Accept(); !ok || got != p1 {
		t.Fatal("the original queued entry must survive the overflow")
	}
}

// TestListenerPendingFullDropIsQuiet covers the same rule for the
// pending-first-data ring in front of the accept queue.
func TestListenerPendingFullDropIsQuiet(t *testing.T) {
	pool := NewPool(testPoolConfig())
	l := NewListener(pool, [4]byte{}, 80, 0, 1, time.Minute, nil)
	now := time.Unix(0, 0)

	p1, _ := pool.AllocatePCB(now)
	p1.scb.Open(1, 4096)
	p1.Listener = l
	l.NotifyEstablished(now, p1)

	p2, _ := pool.AllocatePCB(now)
	p2.scb.Open(2, 4096)
	p2.Listener = l
	l.NotifyEstablished(now, p2) // pending ring full of fresh entries

	if p2.State() != tcp.StateClosed {
		t.Fatal("overflowing connection should be torn down")
	}
	if got := pool.DrainPendingResets(); len(got) != 0 {
		t.Fatalf("a pending-ring capacity drop must not queue an RST, got %d", len(got))
	}
	if !p1.Flags.Has(FlagAcceptPending) {
		t.Fatal("the original pending entry must survive the overflow")
	}
}
