// Package pixmap builds one-bit-per-element bitmaps from comparisons
// against a special value, run-length encodes/decodes them, and restores a
// "plug" value into positions a decoded bitmap marks.
//
// Bit insertion/extraction during RLE encode/decode is delegated to
// bitstream.Stream rather than reimplementing a second accumulator, since
// the RLE payload is itself just a sequence of 1-bit fields in the same
// big-endian orientation.
package pixmap

import (
	"math"

	"github.com/rpnenv/pack/bitstream"
	"github.com/rpnenv/pack/packerr"
)

// Hint bits returned by EncodeHint and consumed by Encode.
const (
	HintFull0  = 1 << 3 // full (group) encoding for runs of 0s
	HintFull1  = 1 << 2 // full (group) encoding for runs of 1s
	Hint123_0  = 1 << 1 // use group size 12 (else 8) for 0-runs
	Hint123_1  = 1 << 0 // use group size 12 (else 8) for 1-runs
	HintAuto   = -1     // Encode should compute its own hint
	defaultNG0 = 8
)

// Bitmap is a one-bit-per-element big-endian bitmap: element 0 is the MSB
// of word 0. It doubles as the RLE-encoded representation of itself — after
// Encode, nrle holds the encoded bit count and words holds the compressed
// stream instead of the raw bits.
type Bitmap struct {
	words []uint32
	nelem int
	ones  int
	nrle  int // > 0 when words holds an RLE-encoded stream, not raw bits
}

// New creates an empty bitmap able to hold nelem elements.
func New(nelem int) *Bitmap {
	if nelem < 0 {
		nelem = 0
	}
	return &Bitmap{words: make([]uint32, (nelem+31)/32), nelem: nelem}
}

// Len returns the number of elements the bitmap describes.
func (b *Bitmap) Len() int { return b.nelem }

// Ones returns the number of bits set to 1, valid only while not encoded.
func (b *Bitmap) Ones() int { return b.ones }

// Encoded reports whether the bitmap currently holds an RLE-encoded stream.
func (b *Bitmap) Encoded() bool { return b.nrle > 0 }

func bitPos(i int) (word, shift int) { return i / 32, 31 - i%32 }

// Set marks element i as 1.
func (b *Bitmap) Set(i int) {
	w, s := bitPos(i)
	b.words[w] |= 1 << uint(s)
}

// Get reports element i's bit.
func (b *Bitmap) Get(i int) bool {
	w, s := bitPos(i)
	return b.words[w]&(1<<uint(s)) != 0
}

func buildPredicate(n int, pred func(i int) bool) *Bitmap {
	bm := New(n)
	ones := 0
	for i := 0; i < n; i++ {
		if pred(i) {
			bm.Set(i)
			ones++
		}
	}
	bm.ones = ones
	return bm
}

// BuildEqualUint32 sets bit i where (data[i] &^ mmask) == (special &^ mmask).
func BuildEqualUint32(data []uint32, special, mmask uint32) *Bitmap {
	inv := ^mmask
	target := special & inv
	return buildPredicate(len(data), func(i int) bool { return data[i]&inv == target })
}

// BuildEqualInt32 sets bit i where (data[i] &^ mmask) == (special &^ mmask).
func BuildEqualInt32(data []int32, special, mmask int32) *Bitmap {
	return BuildEqualUint32(int32ToUint32(data), uint32(special), uint32(mmask))
}

// BuildEqualFloat32 sets bit i where (bits(data[i]) &^ mmask) ==
// (bits(special) &^ mmask).
func BuildEqualFloat32(data []float32, special float32, mmask uint32) *Bitmap {
	return BuildEqualUint32(float32ToBits(data), math.Float32bits(special), mmask)
}

// BuildLessInt32 sets bit i where data[i] < special (signed comparison).
func BuildLessInt32(data []int32, special int32) *Bitmap {
	return buildPredicate(len(data), func(i int) bool { return data[i] < special })
}

// BuildGreaterInt32 sets bit i where data[i] > special (signed comparison).
func BuildGreaterInt32(data []int32, special int32) *Bitmap {
	return buildPredicate(len(data), func(i int) bool { return data[i] > special })
}

// BuildLessUint32 sets bit i where data[i] < special (unsigned comparison).
func BuildLessUint32(data []uint32, special uint32) *Bitmap {
	return buildPredicate(len(data), func(i int) bool { return data[i] < special })
}

// BuildGreaterUint32 sets bit i where data[i] > special (unsigned comparison).
func BuildGreaterUint32(data []uint32, special uint32) *Bitmap {
	return buildPredicate(len(data), func(i int) bool { return data[i] > special })
}

// BuildLessFloat32 sets bit i where data[i] < special.
func BuildLessFloat32(data []float32, special float32) *Bitmap {
	return buildPredicate(len(data), func(i int) bool { return data[i] < special })
}

// BuildGreaterFloat32 sets bit i where data[i] > special.
func BuildGreaterFloat32(data []float32, special float32) *Bitmap {
	return buildPredicate(len(data), func(i int) bool { return data[i] > special })
}

func int32ToUint32(data []int32) []uint32 {
	out := make([]uint32, len(data))
	for i, v := range data {
		out[i] = uint32(v)
	}
	return out
}

func float32ToBits(data []float32) []uint32 {
	out := make([]uint32, len(data))
	for i, v := range data {
		out[i] = math.Float32bits(v)
	}
	return out
}

// EncodeHint scans the first half of the bitmap and recommends an encoding
// mode: it favors full (group) encoding for a bit value whose runs average
// longer than 4 elements, and the larger (12, vs. 8) group size when runs
// average longer than 48.
func EncodeHint(b *Bitmap) int {
	totavail := b.nelem / 2
	var count, lseq [2]int
	i := 0
	for i < totavail {
		bit := b.Get(i)
		start := i
		for i < totavail && b.Get(i) == bit {
			i++
		}
		idx := 0
		if bit {
			idx = 1
		}
		count[idx]++
		lseq[idx] += i - start
	}
	var avg0, avg1 int
	if count[0] > 0 {
		avg0 = lseq[0] / count[0]
	}
	if count[1] > 0 {
		avg1 = lseq[1] / count[1]
	}
	mode := 0
	if avg0 > 4 {
		mode |= HintFull0
	}
	if avg1 > 4 {
		mode |= HintFull1
	}
	if avg0 > 48 {
		mode |= Hint123_0
	}
	if avg1 > 48 {
		mode |= Hint123_1
	}
	return mode
}

// Encode run-length encodes b in place: words is replaced by the encoded
// stream and nrle records its bit length (excluding the 4-bit header and
// the trailing guard bit). Pass HintAuto to let Encode compute its own mode via EncodeHint.
func (b *Bitmap) Encode(mode int) error {
	if b.Encoded() {
		return nil
	}
	if mode == HintAuto {
		mode = EncodeHint(b)
	}
	full0 := mode&HintFull0 != 0
	full1 := mode&HintFull1 != 0
	ng0 := defaultNG0
	if mode&Hint123_0 != 0 {
		ng0 = 12
	}
	ng1 := defaultNG0
	if mode&Hint123_1 != 0 {
		ng1 = 12
	}

	s := bitstream.New(bitstream.BigEndian, len(b.words)+2)
	hdr := uint32(0)
	if full0 {
		hdr |= 1 << 3
	}
	if full1 {
		hdr |= 1 << 2
	}
	if mode&Hint123_0 != 0 {
		hdr |= 1 << 1
	}
	if mode&Hint123_1 != 0 {
		hdr |= 1 << 0
	}
	if err := s.InsertBits(hdr, 4); err != nil {
		return err
	}

	kount := 0
	emit := func(bit uint32) error {
		kount++
		return s.InsertBits(bit, 1)
	}

	lastType := 0
	i := 0
	n := b.nelem
	for i < n {
		bit := b.Get(i)
		start := i
		for i < n && b.Get(i) == bit {
			i++
		}
		run := i - start
		if !bit {
			lastType = 0
			if err := emit(0); err != nil {
				return err
			}
			run--
			if full0 {
				for run >= ng0 {
					run -= ng0
					if err := emit(0); err != nil {
						return err
					}
				}
				if err := emit(1); err != nil {
					return err
				}
				for run >= 3 {
					run -= 3
					if err := emit(0); err != nil {
						return err
					}
				}
				if err := emit(1); err != nil {
					return err
				}
			}
			for run > 0 {
				run--
				if err := emit(0); err != nil {
					return err
				}
			}
		} else {
			lastType = 1
			if err := emit(1); err != nil {
				return err
			}
			run--
			if full1 {
				for run >= ng1 {
					run -= ng1
					if err := emit(1); err != nil {
						return err
					}
				}
				if err := emit(0); err != nil {
					return err
				}
				for run >= 3 {
					run -= 3
					if err := emit(1); err != nil {
						return err
					}
				}
				if err := emit(0); err != nil {
					return err
				}
			}
			for run > 0 {
				run--
				if err := emit(1); err != nil {
					return err
				}
			}
		}
	}
	// guard bit: inverted last emitted type, so the decoder can recognize
	// end of stream unambiguously.
	guard := uint32(1)
	if lastType == 1 {
		guard = 0
	}
	if err := s.InsertBits(guard, 1); err != nil {
		return err
	}
	if err := s.Flush(); err != nil {
		return err
	}

	b.words = s.Words()
	b.nrle = kount
	return nil
}

// Decode reverses Encode in place: words is replaced by nelem raw bits and
// nrle is reset to zero.
func (b *Bitmap) Decode() error {
	if !b.Encoded() {
		return nil
	}
	r := bitstream.NewReader(bitstream.BigEndian, b.words)
	hdr, err := r.ExtractBits(4)
	if err != nil {
		return err
	}
	full0 := hdr&(1<<3) != 0
	full1 := hdr&(1<<2) != 0
	ng0 := defaultNG0
	if hdr&(1<<1) != 0 {
		ng0 = 12
	}
	ng1 := defaultNG0
	if hdr&(1<<0) != 0 {
		ng1 = 12
	}

	out := New(b.nelem)
	pos := 0
	ones := 0
	set := func(v uint32) {
		if pos >= out.nelem {
			return
		}
		if v == 1 {
			out.Set(pos)
			ones++
		}
		pos++
	}
	setRun := func(v uint32, count int) {
		for k := 0; k < count; k++ {
			set(v)
		}
	}

	next := func() (uint32, error) { return r.ExtractBits(1) }

	bit, err := next()
	if err != nil {
		return err
	}

	for pos < out.nelem {
		if bit == 0 {
			set(0)
			if bit, err = next(); err != nil {
				return err
			}
			if full0 {
				for bit == 0 {
					setRun(0, ng0)
					if bit, err = next(); err != nil {
						return err
					}
				}
				if bit, err = next(); err != nil {
					return err
				}
				for bit == 0 {
					setRun(0, 3)
					if bit, err = next(); err != nil {
						return err
					}
				}
				if bit, err = next(); err != nil {
					return err
				}
			}
			for bit == 0 && pos < out.nelem {
				set(0)
				if bit, err = next(); err != nil {
					return err
				}
			}
		} else {
			set(1)
			if bit, err = next(); err != nil {
				return err
			}
			if full1 {
				for bit == 1 {
					setRun(1, ng1)
					if bit, err = next(); err != nil {
						return err
					}
				}
				if bit, err = next(); err != nil {
					return err
				}
				for bit == 1 {
					setRun(1, 3)
					if bit, err = next(); err != nil {
						return err
					}
				}
				if bit, err = next(); err != nil {
					return err
				}
			}
			for bit == 1 && pos < out.nelem {
				set(1)
				if bit, err = next(); err != nil {
					return err
				}
			}
		}
	}

	out.ones = ones
	b.words = out.words
	b.nrle = 0
	return nil
}

// RestoreUint32 writes plug into array at every position the bitmap marks
// 1, leaving other positions unchanged. array must have at least Len()
// elements. If the bitmap is currently encoded, it is decoded first (in
// place).
func (b *Bitmap) RestoreUint32(array []uint32, plug uint32) error {
	if len(array) < b.nelem {
		return packerr.ErrInvalidInput
	}
	if b.Encoded() {
		if err := b.Decode(); err != nil {
			return err
		}
	}
	for i := 0; i < b.nelem; i++ {
		if b.Get(i) {
			array[i] = plug
		}
	}
	return nil
}

// RestoreFloat32 is RestoreUint32 for a float32 destination.
func (b *Bitmap) RestoreFloat32(array []float32, plug float32) error {
	if len(array) < b.nelem {
		return packerr.ErrInvalidInput
	}
	if b.Encoded() {
		if err := b.Decode(); err != nil {
			return err
		}
	}
	for i := 0; i < b.nelem; i++ {
		if b.Get(i) {
			array[i] = plug
		}
	}
	return nil
}

// Dup returns an independent copy of b.
func (b *Bitmap) Dup() *Bitmap {
	d := &Bitmap{nelem: b.nelem, ones: b.ones, nrle: b.nrle}
	d.words = make([]uint32, len(b.words))
	copy(d.words, b.words)
	return d
}
