package tcp

import "errors"

var errTCBNotClosed = errors.New("tcb not closed")

// Value is a TCP sequence number as defined in RFC 9293. Values wrap around
// modulo 2**32, so comparisons must account for wraparound instead of using
// plain integer comparison directly on the underlying uint32.
type Value uint32

// Size represents a length of a span of sequence numbers, such as a window
// size or segment data length. It is always less than 2**32.
type Size uint32

// Add returns the sequence value obtained by advancing v by sz sequence numbers,
// wrapping around on overflow as per RFC 9293 serial number arithmetic.
func Add(v Value, sz Size) Value {
	return v + Value(sz)
}

// Sizeof returns the number of sequence numbers between a (inclusive) and b
// (exclusive), i.e. the distance one must add to a to reach b. It wraps around
// on overflow, so Sizeof is always a valid, non-negative distance even if b
// precedes a numerically.
func Sizeof(a, b Value) Size {
	return Size(b - a)
}

// LessThan reports whether v precedes x in sequence space, per the modular
// arithmetic comparisons of RFC 1982/9293 (seq1 < seq2 iff (seq2-seq1) is a
// positive value less than half the sequence space).
func (v Value) LessThan(x Value) bool {
	return int32(v-x) < 0
}

// LessThanEq reports whether v precedes or equals x in sequence space.
func (v Value) LessThanEq(x Value) bool {
	return v == x || v.LessThan(x)
}

// InWindow reports whether v falls within the window [start, start+size) in
// sequence space, accounting for wraparound.
func (v Value) InWindow(start Value, size Size) bool {
	if size == 0 {
		return v == start
	}
	return Sizeof(start, v) < size
}

// UpdateForward advances v by n sequence numbers in place.
func (v *Value) UpdateForward(n Size) {
	*v = Add(*v, n)
}
