package pcb

import "github.com/nilgrove/pcbstack/tcp"

// oosRange is one entry of the out-of-order receive ring: a segment's byte
// range that arrived ahead of rcv_nxt, held until the gap in front of it
// closes.
type oosRange struct {
	used    bool
	seq     tcp.Value
	wnd     tcp.Size
	fin     bool
	payload []byte
}

// oosRing is a fixed-capacity out-of-order buffer, sized by
// [Config.NumOosSegs], holding one segment per slot. Segments are stored as
// they arrive: a segment whose starting sequence number is already buffered
// is skipped, but overlapping segments are neither trimmed nor merged, so
// stored ranges can overlap. takeNext only returns a range that starts
// exactly at the requested sequence number.
type oosRing struct {
	slots []oosRange
}

func newOOSRing(n int) oosRing {
	return oosRing{slots: make([]oosRange, n)}
}

// insert buffers seg's payload at seq, copying bytes so the caller's buffer
// can be reused. Returns false if the ring has no free slot (caller should
// drop the segment and still ACK, per the overflow policy).
func (r *oosRing) insert(seq tcp.Value, wnd tcp.Size, fin bool, payload []byte) bool {
	for i := range r.slots {
		if r.slots[i].used && r.slots[i].seq == seq {
			return true // already buffered (retransmitted fragment); nothing to do.
		}
	}
	for i := range r.slots {
		if !r.slots[i].used {
			buf := append([]byte(nil), payload...)
			r.slots[i] = oosRange{used: true, seq: seq, wnd: wnd, fin: fin, payload: buf}
			return true
		}
	}
	return false
}

// takeNext removes and returns the buffered range starting exactly at want,
// if any.
func (r *oosRing) takeNext(want tcp.Value) (oosRange, bool) {
	for i := range r.slots {
		if r.slots[i].used && r.slots[i].seq == want {
			out := r.slots[i]
			r.slots[i] = oosRange{}
			return out, true
		}
	}
	return oosRange{}, false
}

// reset discards every buffered range, used when a PCB is recycled.
func (r *oosRing) reset() {
	for i := range r.slots {
		r.slots[i] = oosRange{}
	}
}
