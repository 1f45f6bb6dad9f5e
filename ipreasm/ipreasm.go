// Package ipreasm implements IPv4 datagram reassembly using the
// hole-descriptor strategy of RFC 815, placing a small (HoleSize,
// NextHoleOffset) record at the start of every still-missing byte range.
// It is a direct port of AIpStack's IpReassembly
// (original_source/src/aipstack/ip/IpReassembly.h): a fixed array of
// reassembly slots, each holding a copy of the datagram's base IPv4
// header plus a reassembly buffer sized for the largest datagram the
// table will accept; any fragment that fails a consistency check
// invalidates its slot outright rather than trying to salvage it.
package ipreasm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"
)

const (
	holeDescriptorSize = 4
	// reassNullLink marks the end of the hole list, and also a free slot
	// when stored in an entry's firstHoleOffset.
	reassNullLink = 0xFFFF
)

var (
	// ErrTooLarge describes a fragment whose offset or length would place
	// data beyond MaxSize. Reassemble does not return it: such a fragment
	// invalidates its slot and is reported as ok == false.
	ErrTooLarge = errors.New("ipreasm: fragment exceeds reassembly buffer")
	errBadConfig = errors.New("ipreasm: invalid configuration")
)

// Config bounds the resources a [Table] may use.
type Config struct {
	// MaxEntries is the number of concurrent in-progress reassemblies the
	// table can track. Must be > 0.
	MaxEntries int
	// MaxSize is the largest reassembled datagram payload accepted, in
	// bytes. Must be large enough to hold a header-only minimum datagram.
	MaxSize uint16
	// MaxHoles bounds the number of outstanding gaps a single datagram may
	// have before it is invalidated, guarding against pathological
	// fragment orderings consuming unbounded hole-list length. Must be
	// between 1 and 250.
	MaxHoles uint8
	// MaxTime bounds how long a slot may stay alive regardless of the
	// datagram's own TTL. Must be >= 5s.
	MaxTime time.Duration
}

func (c Config) validate() error {
	if c.MaxEntries <= 0 || c.MaxHoles == 0 || c.MaxHoles > 250 || c.MaxTime < 5*time.Second {
		return errBadConfig
	}
	return nil
}

type key struct {
	ident      uint16
	src, dst   [4]byte
	proto      uint8
}

type entry struct {
	inUse           bool
	firstHoleOffset uint16
	dataLength      uint16 // 0 until the final fragment has been seen
	expiration      time.Time
	header          [20]byte
	key             key
	data            []byte // len == int(cfg.MaxSize) + holeDescriptorSize
}

func (e *entry) free() bool { return !e.inUse }

// Table holds in-progress IPv4 reassemblies.
type Table struct {
	cfg     Config
	entries []entry
	logger
}

// New constructs a Table from cfg, or returns an error if cfg is invalid.
func New(cfg Config) (*Table, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t := &Table{cfg: cfg, entries: make([]entry, cfg.MaxEntries)}
	bufSize := int(cfg.MaxSize) + holeDescriptorSize
	for i := range t.entries {
		t.entries[i].data = make([]byte, bufSize)
	}
	return t, nil
}

func putHole(buf []byte, size, next uint16) {
	binary.BigEndian.PutUint16(buf[0:2], size)
	binary.BigEndian.PutUint16(buf[2:4], next)
}

func getHole(buf []byte) (size, next uint16) {
	return binary.BigEndian.Uint16(buf[0:2]), binary.BigEndian.Uint16(buf[2:4])
}

// Reassemble processes one non-final or non-zero-offset IPv4 fragment and
// reports whether it completed a datagram. header must be the 20-byte base
// IPv4 header (options excluded) of the fragment being processed, already
// validated to be consistent with the other arguments. payload is the
// fragment's own data (the IP payload after the header); its bytes are
// copied, so the caller's buffer may be reused immediately after the call
// returns.
//
// On success, the returned slice is only valid until the next call to
// Reassemble or Purge on this Table.
func (t *Table) Reassemble(now time.Time, ident uint16, src, dst [4]byte, proto, ttl uint8, moreFragments bool, fragOffset int, header []byte, payload []byte) (reassembled []byte, ok bool) {
	if len(payload) == 0 {
		return nil, false
	}
	k := key{ident: ident, src: src, dst: dst, proto: proto}
	e := t.find(now, k)
	if e == nil {
		e = t.alloc(now, ttl)
		copy(e.header[:], header)
		e.key = k
		e.firstHoleOffset = 0
		e.dataLength = 0
		putHole(e.data, uint16(len(e.data)), reassNullLink)
	}

	maxSize := int(t.cfg.MaxSize)
	if fragOffset > maxSize || len(payload) > maxSize-fragOffset {
		t.debug("ipreasm:too-large", slog.Int("fragOffset", fragOffset), slog.Int("fragLen", len(payload)))
		e.inUse = false
		return nil, false
	}
	fragEnd := fragOffset + len(payload)

	if !moreFragments {
		if e.dataLength != 0 && uint16(fragEnd) != e.dataLength {
			t.logerr("ipreasm:inconsistent-length", slog.Uint64("ident", uint64(ident)))
			e.inUse = false
			return nil, false
		}
		e.dataLength = uint16(fragEnd)
	} else if e.dataLength != 0 && uint16(fragEnd) > e.dataLength {
		t.logerr("ipreasm:inconsistent-length", slog.Uint64("ident", uint64(ident)))
		e.inUse = false
		return nil, false
	}

	prevHoleOffset := uint16(reassNullLink)
	holeOffset := e.firstHoleOffset
	var numHoles uint8
	for {
		holeSize, nextHoleOffset := getHole(e.data[holeOffset:])
		holeEnd := int(holeOffset) + int(holeSize)

		if !moreFragments && int(holeOffset) > fragEnd {
			e.inUse = false
			return nil, false
		}

		if fragOffset >= holeEnd || fragEnd <= int(holeOffset) {
			// No overlap with this hole.
			prevHoleOffset = holeOffset
			holeOffset = nextHoleOffset
			numHoles++
			if holeOffset == reassNullLink {
				break
			}
			continue
		}

		// Overlap: dismantle this hole into zero, one or two new holes.
		if fragOffset > int(holeOffset) {
			newHoleSize := fragOffset - int(holeOffset)
			if newHoleSize < holeDescriptorSize {
				e.inUse = false
				return nil, false
			}
			putHole(e.data[holeOffset:], uint16(newHoleSize), nextHoleOffset) // next patched below if right hole exists
			prevHoleOffset = holeOffset
			numHoles++
		}
		if fragEnd < holeEnd {
			newHoleSize := holeEnd - fragEnd
			if newHoleSize < holeDescriptorSize {
				e.inUse = false
				return nil, false
			}
			putHole(e.data[fragEnd:], uint16(newHoleSize), nextHoleOffset)
			t.linkPrev(e, prevHoleOffset, uint16(fragEnd))
			prevHoleOffset = uint16(fragEnd)
			numHoles++
		}
		t.linkPrev(e, prevHoleOffset, nextHoleOffset)

		holeOffset = nextHoleOffset
		if holeOffset == reassNullLink {
			break
		}
	}

	copy(e.data[fragOffset:fragEnd], payload)

	if e.dataLength == 0 || e.firstHoleOffset < e.dataLength {
		if numHoles > t.cfg.MaxHoles {
			e.inUse = false
		}
		return nil, false
	}

	// Only the sentinel tail hole remains: reassembly complete.
	e.inUse = false
	t.debug("ipreasm:complete", slog.Uint64("ident", uint64(ident)), slog.Int("len", int(e.dataLength)))
	return e.data[:e.dataLength], true
}

func (t *Table) linkPrev(e *entry, prevHoleOffset, holeOffset uint16) {
	if prevHoleOffset == reassNullLink {
		e.firstHoleOffset = holeOffset
	} else {
		size, _ := getHole(e.data[prevHoleOffset:])
		putHole(e.data[prevHoleOffset:], size, holeOffset)
	}
}

// find returns the live entry matching k, purging any expired entries it
// encounters along the way (mirrors the teacher's "purge while scanning"
// behavior, so a dedicated purge pass is a convenience, not a requirement
// for correctness).
func (t *Table) find(now time.Time, k key) *entry {
	var found *entry
	for i := range t.entries {
		e := &t.entries[i]
		if e.free() {
			continue
		}
		if !now.Before(e.expiration) {
			e.inUse = false
			continue
		}
		if e.key == k {
			found = e
		}
	}
	return found
}

func (t *Table) alloc(now time.Time, ttl uint8) *entry {
	var result *entry
	for i := range t.entries {
		e := &t.entries[i]
		if e.free() {
			result = e
			break
		}
		if result == nil || e.expiration.Before(result.expiration) {
			result = e
		}
	}
	if result.inUse {
		t.trace("ipreasm:evict-oldest", slog.Time("expiration", result.expiration))
	}
	seconds := time.Duration(ttl) * time.Second
	if seconds > t.cfg.MaxTime {
		seconds = t.cfg.MaxTime
	}
	result.inUse = true
	result.expiration = now.Add(seconds)
	return result
}

// Purge drops every reassembly slot whose expiration is at or before now.
// Intended to be called periodically (e.g. once per second) so that slots
// belonging to datagrams that will never complete are reclaimed even
// without new traffic triggering find's opportunistic sweep.
func (t *Table) Purge(now time.Time) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.inUse && !now.Before(e.expiration) {
			e.inUse = false
		}
	}
}

// headerEquals reports whether the stored base header for an in-progress
// reassembly matching ident/src/dst/proto equals hdr byte-for-byte. It is
// unexported and has no caller in this package.
func (t *Table) headerEquals(now time.Time, k key, hdr []byte) bool {
	e := t.find(now, k)
	return e != nil && bytes.Equal(e.header[:], hdr)
}
