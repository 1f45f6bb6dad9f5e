// Package timer implements a small collection of named, per-owner timers
// with delayed-update batching, in the style of AIpStack's MultiTimer
// (platform/MultiTimer.h, platform/TimerWrapper.h): an owner (here, a PCB)
// embeds a fixed-size [Group] of named timers; Set/Unset calls during
// packet processing only stage a pending value, and [Group.Flush] applies
// every staged change in one pass at the end of processing. This collapses
// several Set/Unset calls against the same timer (a very common pattern:
// a segment both cancels a retransmission timer and rearms it) into a
// single effective update, and keeps "what's the next deadline" a cheap
// scan over already-settled state rather than something recomputed
// mid-update.
package timer

import "time"

// Timer is one named alarm. Its zero value is unset.
type Timer struct {
	active     bool
	at         time.Time
	hasPending bool
	pending    bool
	pendingAt  time.Time
}

// Set stages the timer to fire at "at", overwriting any previously staged
// (but not yet flushed) value. Call [Group.Flush] to apply it.
func (t *Timer) Set(at time.Time) {
	t.pending, t.pendingAt, t.hasPending = true, at, true
}

// SetRelative is a convenience wrapper for Set(now.Add(d)).
func (t *Timer) SetRelative(now time.Time, d time.Duration) {
	t.Set(now.Add(d))
}

// Unset stages the timer to be cancelled. Call [Group.Flush] to apply it.
func (t *Timer) Unset() {
	t.pending, t.hasPending = false, true
}

// IsSet reports whether the timer is currently armed, using the last
// flushed (not pending) state.
func (t *Timer) IsSet() bool { return t.active }

// At returns the deadline of the last flushed Set call. Only meaningful if
// IsSet returns true.
func (t *Timer) At() time.Time { return t.at }

// Expired reports whether the timer is armed and its deadline is at or
// before now, using flushed state.
func (t *Timer) Expired(now time.Time) bool {
	return t.active && !t.at.After(now)
}

// flush applies a staged Set/Unset, if any, and reports whether the armed
// state or the deadline changed as a result.
func (t *Timer) flush() bool {
	if !t.hasPending {
		return false
	}
	changed := t.active != t.pending || (t.pending && !t.at.Equal(t.pendingAt))
	t.active, t.at = t.pending, t.pendingAt
	t.hasPending = false
	return changed
}

// Group is a fixed-size collection of named [Timer]s belonging to a single
// owner. The index space (which slot means what) is defined by the caller;
// [pcb.PCB], for instance, uses three slots for its abort, output and
// retransmission timers.
type Group struct {
	timers []Timer
}

// NewGroup allocates a Group with n timer slots, all initially unset.
func NewGroup(n int) Group {
	return Group{timers: make([]Timer, n)}
}

// Len returns the number of timer slots in the group.
func (g *Group) Len() int { return len(g.timers) }

// At returns the timer at index i. The returned pointer is valid for the
// lifetime of the Group and may be used directly to Set/Unset/inspect it.
func (g *Group) At(i int) *Timer { return &g.timers[i] }

// Flush applies every staged Set/Unset across the group in one pass and
// reports whether any timer's armed/deadline state changed.
func (g *Group) Flush() (changed bool) {
	for i := range g.timers {
		if g.timers[i].flush() {
			changed = true
		}
	}
	return changed
}

// NextDeadline returns the earliest deadline among armed timers in the
// group (flushed state) and whether any timer is armed at all.
func (g *Group) NextDeadline() (time.Time, bool) {
	var best time.Time
	found := false
	for i := range g.timers {
		if !g.timers[i].active {
			continue
		}
		if !found || g.timers[i].at.Before(best) {
			best, found = g.timers[i].at, true
		}
	}
	return best, found
}

// Expired appends to dst the indices of every armed timer whose deadline
// is at or before now, and returns the extended slice. Using an
// caller-supplied slice avoids an allocation in the common "poll every
// owner" loop.
func (g *Group) Expired(now time.Time, dst []int) []int {
	for i := range g.timers {
		if g.timers[i].Expired(now) {
			dst = append(dst, i)
		}
	}
	return dst
}

// Reset unsets every timer in the group immediately, bypassing the
// pending/flush staging. Used when an owner is being recycled by a pool
// and its previous timer state must not leak into the next use.
func (g *Group) Reset() {
	for i := range g.timers {
		g.timers[i] = Timer{}
	}
}
