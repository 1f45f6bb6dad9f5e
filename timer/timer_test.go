package timer

import (
	"testing"
	"time"
)

func TestSetFlushExpire(t *testing.T) {
	now := time.Unix(1000, 0)
	var g Group = NewGroup(3)

	g.At(0).SetRelative(now, 10*time.Second)
	if g.At(0).IsSet() {
		t.Fatal("timer should not be active before Flush")
	}
	if changed := g.Flush(); !changed {
		t.Fatal("expected Flush to report a change")
	}
	if !g.At(0).IsSet() {
		t.Fatal("timer should be active after Flush")
	}

	if g.At(0).Expired(now) {
		t.Fatal("should not be expired yet")
	}
	if !g.At(0).Expired(now.Add(10 * time.Second)) {
		t.Fatal("should be expired at deadline")
	}
}

func TestCollapsedSetUnset(t *testing.T) {
	now := time.Unix(0, 0)
	g := NewGroup(1)
	g.At(0).SetRelative(now, time.Second)
	g.Flush()

	// Within one processing pass: unset then reset to a new deadline.
	g.At(0).Unset()
	g.At(0).SetRelative(now, 5*time.Second)
	g.Flush()

	dl, ok := g.NextDeadline()
	if !ok || !dl.Equal(now.Add(5*time.Second)) {
		t.Fatalf("deadline=%v ok=%v want %v", dl, ok, now.Add(5*time.Second))
	}
}

func TestNextDeadlineAcrossGroup(t *testing.T) {
	now := time.Unix(0, 0)
	g := NewGroup(3)
	g.At(0).SetRelative(now, 30*time.Second)
	g.At(1).SetRelative(now, 5*time.Second)
	g.At(2).SetRelative(now, 10*time.Second)
	g.Flush()

	dl, ok := g.NextDeadline()
	if !ok || !dl.Equal(now.Add(5*time.Second)) {
		t.Fatalf("expected earliest deadline from slot 1, got %v", dl)
	}
}

func TestExpiredList(t *testing.T) {
	now := time.Unix(0, 0)
	g := NewGroup(3)
	g.At(0).SetRelative(now, time.Second)
	g.At(2).SetRelative(now, 2*time.Second)
	g.Flush()

	got := g.Expired(now.Add(3*time.Second), nil)
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("got %v want [0 2]", got)
	}
}

func TestResetClearsPending(t *testing.T) {
	now := time.Unix(0, 0)
	g := NewGroup(1)
	g.At(0).SetRelative(now, time.Second)
	g.Flush()
	g.Reset()
	if g.At(0).IsSet() {
		t.Fatal("expected timer unset after Reset")
	}
	if _, ok := g.NextDeadline(); ok {
		t.Fatal("expected no deadline after Reset")
	}
}
