package pcb

import (
	"testing"
	"time"

	"github.com/nilgrove/pcbstack/tcp"
)

func testPoolConfig() Config {
	cfg := DefaultConfig()
	cfg.NumPCBs = 2
	cfg.NumOosSegs = 2
	cfg.EphemeralPortFirst = 50000
	cfg.EphemeralPortLast = 50002
	return cfg
}

func TestPoolAllocateUntilExhausted(t *testing.T) {
	pool := NewPool(testPoolConfig())
	now := time.Unix(0, 0)

	p1, err := pool.AllocatePCB(now)
	if err != nil {
		t.Fatalf("AllocatePCB: %v", err)
	}
	p1.LocalPort, p1.RemotePort = 1000, 2000

	p2, err := pool.AllocatePCB(now)
	if err != nil {
		t.Fatalf("AllocatePCB: %v", err)
	}
	p2.LocalPort, p2.RemotePort = 1001, 2001

	if p1 == p2 {
		t.Fatal("two allocations from a 2-PCB pool must return distinct PCBs")
	}

	if _, err := pool.AllocatePCB(now); err == nil {
		t.Fatal("pool with both PCBs idle-but-unused should still report ErrNoPCBAvail once the array is exhausted and nothing is evictable")
	}
}

func TestPoolFindByFourTuple(t *testing.T) {
	pool := NewPool(testPoolConfig())
	now := time.Unix(0, 0)
	p, _ := pool.AllocatePCB(now)
	p.LocalAddr = [4]byte{10, 0, 0, 1}
	p.RemoteAddr = [4]byte{10, 0, 0, 2}
	p.LocalPort, p.RemotePort = 80, 4321
	if err := p.scb.Open(1000, 4096); err != nil {
		t.Fatalf("Open: %v", err)
	}

	got, ok := pool.Find(p.LocalAddr, p.RemoteAddr, 80, 4321)
	if !ok || got != p {
		t.Fatal("Find should return the PCB matching its 4-tuple")
	}
	if _, ok := pool.Find(p.LocalAddr, p.RemoteAddr, 81, 4321); ok {
		t.Fatal("Find should not match on a different local port")
	}
}

func TestPoolEvictsLRUWhenFull(t *testing.T) {
	pool := NewPool(testPoolConfig())
	now := time.Unix(0, 0)

	p1, _ := pool.AllocatePCB(now)
	p1.LocalPort = 1
	if err := p1.scb.Open(1, 4096); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pool.updateLRU(p1) // what segment processing does for a live, unreferenced PCB

	p2, _ := pool.AllocatePCB(now)
	p2.LocalPort = 2
	if err := p2.scb.Open(1, 4096); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pool.updateLRU(p2)

	// p1 is least-recently-active; a third allocation must evict it.
	p3, err := pool.AllocatePCB(now)
	if err != nil {
		t.Fatalf("AllocatePCB should evict the LRU entry instead of failing: %v", err)
	}
	if p3 != p1 {
		t.Fatalf("expected the recycled PCB to be the evicted LRU slot")
	}
	if p3.State() != tcp.StateClosed {
		t.Fatalf("recycled PCB should start from StateClosed, got %v", p3.State())
	}
}

// TestPoolReferencedPCBNeverEvicted pins the unreferenced-list rule: a PCB
// with a bound Connection leaves the eviction list the moment the handle
// binds, so pool pressure can only ever reclaim connections nothing
// application-side still references.
func TestPoolReferencedPCBNeverEvicted(t *testing.T) {
	pool := NewPool(testPoolConfig())
	now := time.Unix(0, 0)

	p1, _ := pool.AllocatePCB(now)
	p1.LocalPort = 1
	if err := p1.scb.Open(1, 4096); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pool.updateLRU(p1)
	conn := NewConnection(p1, Callbacks{}) // binding must unlink p1

	p2, _ := pool.AllocatePCB(now)
	p2.LocalPort = 2
	if err := p2.scb.Open(1, 4096); err != nil {
		t.Fatalf("Open: %v", err)
	}
	pool.updateLRU(p2)

	p3, err := pool.AllocatePCB(now)
	if err != nil {
		t.Fatalf("the unreferenced PCB should have been evicted: %v", err)
	}
	if p3 != p2 {
		t.Fatal("eviction must pick the unreferenced PCB, never one with a bound Connection")
	}
	if !conn.IsLive() || p1.State() == tcp.StateClosed {
		t.Fatal("referenced PCB must survive pool pressure untouched")
	}

	// With every remaining PCB referenced, allocation fails rather than
	// stealing a live connection out from under its handle.
	NewConnection(p3, Callbacks{})
	if _, err := pool.AllocatePCB(now); err == nil {
		t.Fatal("a pool full of referenced PCBs must report exhaustion, not evict")
	}

	// Severing the handle via Abandon puts the PCB back on the eviction
	// list.
	conn.Abandon(now)
	if p4, err := pool.AllocatePCB(now); err != nil || p4 != p1 {
		t.Fatalf("abandoned PCB should be evictable again, got (%v, %v)", p4, err)
	}
}

func TestAllocateEphemeralPortRotates(t *testing.T) {
	pool := NewPool(testPoolConfig())
	remote := [4]byte{1, 2, 3, 4}
	local := [4]byte{5, 6, 7, 8}

	seen := map[uint16]bool{}
	for i := 0; i < 3; i++ {
		port, err := pool.AllocateEphemeralPort(local, remote, 9)
		if err != nil {
			t.Fatalf("AllocateEphemeralPort: %v", err)
		}
		if seen[port] {
			t.Fatalf("port %d allocated twice before any PCB bound it", port)
		}
		seen[port] = true
		p, err := pool.AllocatePCB(time.Unix(0, 0))
		if err != nil {
			break // pool may be smaller than the port range; that's fine here.
		}
		p.LocalAddr, p.RemoteAddr = local, remote
		p.LocalPort, p.RemotePort = port, 9
		p.scb.Open(1, 4096)
	}
}
