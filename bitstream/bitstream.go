// Package bitstream implements a 32-bit-word-buffered bit stream with a
// 64-bit accumulator, supporting big-endian and little-endian insertion and
// extraction, independent read/write cursors, save/restore of stream state,
// resizing, and duplication.
package bitstream

import "github.com/rpnenv/pack/packerr"

// Marker tags a Stream's backing buffer as having been initialized by this
// package, so a zero-value or foreign struct is rejected before use.
const Marker uint32 = 0xcafefade

// Endian selects the bit-insertion/extraction orientation. A stream created
// with one orientation cannot be read by the other.
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

// Owner describes who is responsible for the backing buffer's lifetime.
type Owner int

const (
	OwnerUser   Owner = iota // caller-supplied buffer; must not be resized
	OwnerBuffer              // library-allocated buffer; may grow
	OwnerStruct              // struct and buffer allocated together
)

// State is a saved snapshot of a Stream's read or write cursor, produced by
// SaveState and consumed by RestoreState.
type State struct {
	acc   uint64
	bits  int
	index int
}

// Stream is a 32-bit-word-buffered bit stream. The zero value is not valid;
// use New.
type Stream struct {
	marker uint32
	endian Endian
	owner  Owner

	words []uint32 // backing buffer
	in    int       // next word index to write (big-endian) / have written
	out   int       // next word index to read

	accIn     uint64
	insertLen int // bits pending in accIn; -1 if insertion disabled

	accOut    uint64
	xtractLen int // bits available in accOut; -1 if extraction disabled
}

// New creates an empty bitstream over a library-owned buffer with the given
// word capacity hint, ready for both insertion and extraction.
func New(endian Endian, capacityWords int) *Stream {
	if capacityWords < 1 {
		capacityWords = 1
	}
	return &Stream{
		marker: Marker,
		endian: endian,
		owner:  OwnerBuffer,
		words:  make([]uint32, capacityWords),
	}
}

// NewReader creates a read-only bitstream over caller-supplied words. The
// caller retains ownership of words; the stream will not resize it.
func NewReader(endian Endian, words []uint32) *Stream {
	return &Stream{
		marker:    Marker,
		endian:    endian,
		owner:     OwnerUser,
		words:     words,
		in:        len(words),
		insertLen: -1,
	}
}

// Valid reports whether s carries the expected marker.
func (s *Stream) Valid() bool { return s != nil && s.marker == Marker }

// Endian returns the stream's orientation.
func (s *Stream) Endian() Endian { return s.endian }

func mask(nbits int) uint32 {
	if nbits >= 32 {
		return 0xffffffff
	}
	if nbits <= 0 {
		return 0
	}
	return (uint32(1) << uint(nbits)) - 1
}

func (s *Stream) ensureCapacity(words int) error {
	if words <= len(s.words) {
		return nil
	}
	if s.owner == OwnerUser {
		return packerr.ErrCapacity
	}
	grown := make([]uint32, words*2)
	copy(grown, s.words)
	s.words = grown
	return nil
}

// Resize grows the buffer to hold at least words 32-bit words, preserving
// existing contents. It never shrinks the buffer. Callers must not hold
// slices derived from Words() across a Resize.
func (s *Stream) Resize(words int) error {
	if !s.Valid() {
		return packerr.ErrInvariant
	}
	return s.ensureCapacity(words)
}

// InsertBits inserts the low nbits bits of w32 into the stream, in the
// stream's configured orientation. 0 < nbits <= 32 must hold.
func (s *Stream) InsertBits(w32 uint32, nbits int) error {
	if !s.Valid() || nbits <= 0 || nbits > 32 {
		return packerr.ErrInvariant
	}
	if s.insertLen < 0 { // insertion disabled (read-only stream)
		return packerr.ErrInvariant
	}
	v := w32 & mask(nbits)
	switch s.endian {
	case BigEndian:
		s.accIn = (s.accIn << uint(nbits)) | uint64(v)
		s.insertLen += nbits
		for s.insertLen >= 32 {
			if err := s.ensureCapacity(s.in + 1); err != nil {
				return err
			}
			s.insertLen -= 32
			s.words[s.in] = uint32(s.accIn >> uint(s.insertLen))
			s.in++
		}
	case LittleEndian:
		s.accIn |= uint64(v) << uint(s.insertLen)
		s.insertLen += nbits
		for s.insertLen >= 32 {
			if err := s.ensureCapacity(s.in + 1); err != nil {
				return err
			}
			s.words[s.in] = uint32(s.accIn)
			s.accIn >>= 32
			s.insertLen -= 32
			s.in++
		}
	}
	return nil
}

// Flush pushes any partial accumulator content to the buffer, zero-padded
// to a full 32-bit word, and advances the write pointer past it. After
// Flush, the insertion accumulator is empty.
func (s *Stream) Flush() error {
	if !s.Valid() {
		return packerr.ErrInvariant
	}
	if s.insertLen <= 0 {
		return nil
	}
	if err := s.ensureCapacity(s.in + 1); err != nil {
		return err
	}
	switch s.endian {
	case BigEndian:
		s.words[s.in] = uint32(s.accIn << uint(32-s.insertLen))
	case LittleEndian:
		s.words[s.in] = uint32(s.accIn)
	}
	s.in++
	s.accIn = 0
	s.insertLen = 0
	return nil
}

// Push writes the current partial accumulator content to the buffer without
// advancing the write pointer, so a later Insert or Flush will overwrite the
// same word. Useful for peeking at in-progress output.
func (s *Stream) Push() error {
	if !s.Valid() {
		return packerr.ErrInvariant
	}
	if s.insertLen <= 0 {
		return nil
	}
	if err := s.ensureCapacity(s.in + 1); err != nil {
		return err
	}
	switch s.endian {
	case BigEndian:
		s.words[s.in] = uint32(s.accIn << uint(32-s.insertLen))
	case LittleEndian:
		s.words[s.in] = uint32(s.accIn)
	}
	return nil
}

// ExtractBits extracts the next nbits bits from the stream as an unsigned
// value. 0 < nbits <= 32 must hold.
func (s *Stream) ExtractBits(nbits int) (uint32, error) {
	if !s.Valid() || nbits <= 0 || nbits > 32 {
		return 0, packerr.ErrInvariant
	}
	switch s.endian {
	case BigEndian:
		for s.xtractLen < nbits {
			if s.out >= s.in {
				return 0, packerr.ErrCapacity
			}
			s.accOut = (s.accOut << 32) | uint64(s.words[s.out])
			s.out++
			s.xtractLen += 32
		}
		s.xtractLen -= nbits
		return uint32(s.accOut>>uint(s.xtractLen)) & mask(nbits), nil
	default: // LittleEndian
		for s.xtractLen < nbits {
			if s.out >= s.in {
				return 0, packerr.ErrCapacity
			}
			s.accOut |= uint64(s.words[s.out]) << uint(s.xtractLen)
			s.out++
			s.xtractLen += 32
		}
		v := uint32(s.accOut) & mask(nbits)
		s.accOut >>= uint(nbits)
		s.xtractLen -= nbits
		return v, nil
	}
}

// ExtractSigned extracts nbits bits and sign-extends the result as a two's
// complement value of that width.
func (s *Stream) ExtractSigned(nbits int) (int32, error) {
	v, err := s.ExtractBits(nbits)
	if err != nil {
		return 0, err
	}
	if nbits < 32 && v&(1<<uint(nbits-1)) != 0 {
		v |= ^mask(nbits)
	}
	return int32(v), nil
}

// Rewind resets the extraction cursor to the start of the written data. If
// forceReadMode is true, any pending partial insertion accumulator is
// discarded first (the write side is abandoned).
func (s *Stream) Rewind(forceReadMode bool) error {
	if !s.Valid() {
		return packerr.ErrInvariant
	}
	if forceReadMode {
		s.accIn = 0
		s.insertLen = 0
	}
	s.out = 0
	s.accOut = 0
	s.xtractLen = 0
	return nil
}

// SaveState captures the current write (insertion) cursor.
func (s *Stream) SaveState() State {
	return State{acc: s.accIn, bits: s.insertLen, index: s.in}
}

// RestoreState restores a previously saved write cursor. Restoring to a
// state beyond what the stream has since reached (index greater than the
// current write index) is a detectable error.
func (s *Stream) RestoreState(st State) error {
	if st.index > s.in {
		return packerr.ErrInvariant
	}
	s.accIn = st.acc
	s.insertLen = st.bits
	s.in = st.index
	return nil
}

// SaveReadState captures the current read (extraction) cursor.
func (s *Stream) SaveReadState() State {
	return State{acc: s.accOut, bits: s.xtractLen, index: s.out}
}

// RestoreReadState restores a previously saved read cursor.
func (s *Stream) RestoreReadState(st State) error {
	if st.index > s.in {
		return packerr.ErrInvariant
	}
	s.accOut = st.acc
	s.xtractLen = st.bits
	s.out = st.index
	return nil
}

// Words returns the words written so far (up to the write cursor). The
// returned slice aliases the stream's internal buffer.
func (s *Stream) Words() []uint32 { return s.words[:s.in] }

// AvailableSpace returns the number of whole 32-bit words still free in the
// backing buffer beyond the write cursor.
func (s *Stream) AvailableSpace() int { return len(s.words) - s.in }

// AvailableBits returns the number of unread bits remaining (written bits
// not yet extracted).
func (s *Stream) AvailableBits() int {
	return (s.in-s.out)*32 + s.xtractLen - 0
}

// Dup creates an independent copy of s over a freshly allocated buffer of
// the same length, copying the whole backing buffer along with the cursors
// and accumulators. The duplicate always owns its buffer,
// even if s did not, since it never aliases the original's caller-supplied
// memory.
func (s *Stream) Dup() *Stream {
	words := make([]uint32, len(s.words))
	copy(words, s.words)
	d := *s
	d.owner = OwnerBuffer
	d.words = words
	return &d
}
