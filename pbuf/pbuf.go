// Package pbuf implements a non-owning, non-copying reference to a chain of
// byte buffers, in the style of AIpStack's IpBufNode/IpBufRef
// (common/Buf.h): a segment carries a byte slice and a pointer to the next
// segment; a reference is an (offset, total length) window over a chain
// starting at some segment. Neither type copies or owns the underlying
// bytes; callers retain that responsibility.
package pbuf

import "errors"

var (
	errShortChain  = errors.New("pbuf: chain shorter than requested length")
	errNegativeLen = errors.New("pbuf: negative length")
)

// Segment is one link of a buffer chain. Data is the segment's own bytes;
// Next, if non-nil, continues the chain. Segments are external to a Ref:
// a Ref never allocates, frees or mutates a Segment, it only traverses.
type Segment struct {
	Data []byte
	Next *Segment
}

// Ref is a reference to a byte range spanning zero or more [Segment]s,
// starting Off bytes into Head and continuing for Len bytes total across
// Head and its Next-linked successors.
//
// Invariant: Off < len(Head.Data) unless Len == 0 (in which case Head may
// be nil). The sum of segment lengths, starting at Off within Head and
// following Next links, must be >= Len.
type Ref struct {
	Head *Segment
	Off  int
	Len  int
}

// NewRef builds a Ref over a single Segment, taking n bytes starting at
// offset off within data.
func NewRef(data []byte, off, n int) Ref {
	return Ref{Head: &Segment{Data: data}, Off: off, Len: n}
}

// IsEmpty reports whether the reference spans zero bytes.
func (r Ref) IsEmpty() bool { return r.Len == 0 }

// headLen returns the number of usable bytes remaining in Head from Off.
func (r Ref) headLen() int {
	if r.Head == nil {
		return 0
	}
	return len(r.Head.Data) - r.Off
}

// Skip returns a Ref with the first n bytes removed from the front. It
// panics if n is negative or greater than r.Len; use TrySkip for a
// non-panicking variant.
func (r Ref) Skip(n int) Ref {
	out, err := r.TrySkip(n)
	if err != nil {
		panic(err)
	}
	return out
}

// TrySkip is the non-panicking form of Skip.
func (r Ref) TrySkip(n int) (Ref, error) {
	if n < 0 {
		return Ref{}, errNegativeLen
	}
	if n > r.Len {
		return Ref{}, errShortChain
	}
	head, off := r.Head, r.Off
	remaining := n
	for remaining > 0 {
		hl := len(head.Data) - off
		if remaining < hl {
			off += remaining
			remaining = 0
			break
		}
		remaining -= hl
		head = head.Next
		off = 0
	}
	return Ref{Head: head, Off: off, Len: r.Len - n}, nil
}

// Take returns a Ref over the first n bytes of r, leaving the tail
// untouched. It panics if n is negative or greater than r.Len.
func (r Ref) Take(n int) Ref {
	out, err := r.TryTake(n)
	if err != nil {
		panic(err)
	}
	return out
}

// TryTake is the non-panicking form of Take.
func (r Ref) TryTake(n int) (Ref, error) {
	if n < 0 {
		return Ref{}, errNegativeLen
	}
	if n > r.Len {
		return Ref{}, errShortChain
	}
	return Ref{Head: r.Head, Off: r.Off, Len: n}, nil
}

// Clone returns a shallow copy of r. Since Ref contains no mutable shared
// state beyond the Segment chain (which it never mutates), Clone is
// equivalent to a plain assignment; it exists so call sites can express
// intent ("I want an independent cursor over the same bytes") without
// relying on that implementation detail.
func (r Ref) Clone() Ref { return r }

// ForEachRange calls fn with each contiguous byte slice of the reference,
// in order, until the chain is exhausted or fn returns false. It performs
// no copies.
func (r Ref) ForEachRange(fn func([]byte) bool) {
	head, off, remaining := r.Head, r.Off, r.Len
	for remaining > 0 && head != nil {
		avail := len(head.Data) - off
		n := avail
		if n > remaining {
			n = remaining
		}
		if n > 0 && !fn(head.Data[off:off+n]) {
			return
		}
		remaining -= n
		head = head.Next
		off = 0
	}
}

// CopyTo copies up to len(dst) bytes from the start of r into dst,
// returning the number of bytes copied. It does not modify r.
func (r Ref) CopyTo(dst []byte) int {
	n := 0
	r.ForEachRange(func(b []byte) bool {
		copied := copy(dst[n:], b)
		n += copied
		return n < len(dst)
	})
	return n
}

// AppendTo appends the full contents of r to dst and returns the result,
// growing dst as needed, in the manner of the built-in append.
func (r Ref) AppendTo(dst []byte) []byte {
	r.ForEachRange(func(b []byte) bool {
		dst = append(dst, b...)
		return true
	})
	return dst
}

// At returns the byte at logical offset i within r (0 <= i < r.Len).
// It panics on an out-of-range index.
func (r Ref) At(i int) byte {
	if i < 0 || i >= r.Len {
		panic("pbuf: index out of range")
	}
	seg, off := r.Head, r.Off+i
	for off >= len(seg.Data) {
		off -= len(seg.Data)
		seg = seg.Next
	}
	return seg.Data[off]
}

// ChainFrom builds a Ref spanning the full length of a chain of Segments
// linked via Next, starting at seg.
func ChainFrom(seg *Segment) Ref {
	total := 0
	for s := seg; s != nil; s = s.Next {
		total += len(s.Data)
	}
	return Ref{Head: seg, Off: 0, Len: total}
}

// Link sets the Next pointer of each segment to the following one, turning
// a slice of otherwise-unlinked Segments into a chain, and returns the
// head. Useful for building a chain out of scattered buffers (e.g. a ring
// buffer's two halves) without copying.
func Link(segs ...*Segment) *Segment {
	for i := 0; i < len(segs)-1; i++ {
		segs[i].Next = segs[i+1]
	}
	if len(segs) == 0 {
		return nil
	}
	return segs[0]
}
