// Package wordstream implements an append-only 32-bit-word stream used by
// the pipeline to carry filter metadata and, for out-of-place forward runs,
// the transformed payload itself.
package wordstream

import "github.com/rpnenv/pack/packerr"

// Marker tags a Stream as having been initialized by New, so a zero-value
// Stream is rejected before use.
const Marker uint32 = 0xDEADBEEF

// Stream is a growable buffer of 32-bit words with independent write (in)
// and read (out) cursors. The zero value is not valid; use New.
type Stream struct {
	marker uint32
	words  []uint32
	in     int // next write index
	out    int // next read index
}

// New creates an empty word stream with the given initial capacity hint.
func New(capacityHint int) *Stream {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Stream{marker: Marker, words: make([]uint32, 0, capacityHint)}
}

// Valid reports whether s carries the expected marker (always true for a
// Stream constructed via New; guards against a zero-value Stream).
func (s *Stream) Valid() bool { return s != nil && s.marker == Marker }

// Insert appends all of words to the stream, growing the backing slice as
// needed.
func (s *Stream) Insert(words []uint32) error {
	if !s.Valid() {
		return packerr.ErrInvariant
	}
	s.words = append(s.words, words...)
	s.in = len(s.words)
	return nil
}

// Len returns the number of words written so far.
func (s *Stream) Len() int { return len(s.words) }

// Words returns the stream's contents as written so far. The returned
// slice aliases the stream's internal buffer and must not be retained
// across further Insert calls.
func (s *Stream) Words() []uint32 { return s.words[:s.in] }

// RewindRead resets the read cursor to the start of the stream without
// discarding written data.
func (s *Stream) RewindRead() { s.out = 0 }

// Reset discards all data, returning the stream to its empty state.
func (s *Stream) Reset() {
	s.words = s.words[:0]
	s.in = 0
	s.out = 0
}

// Read consumes and returns the next n words, or an error if fewer than n
// remain unread.
func (s *Stream) Read(n int) ([]uint32, error) {
	if !s.Valid() {
		return nil, packerr.ErrInvariant
	}
	if s.out+n > s.in {
		return nil, packerr.ErrCapacity
	}
	out := s.words[s.out : s.out+n]
	s.out += n
	return out, nil
}

// Available returns the number of unread words remaining.
func (s *Stream) Available() int { return s.in - s.out }
