// Package tile implements two fixed-size block codecs: an integer tile
// codec (1..64 values, short/full token split) and a float 4x4 block codec
// (exponent/mantissa separation with a shared block exponent range).
//
// The integer codec detects the tile's sign pattern (all-nonnegative,
// all-negative, or mixed) and converts accordingly (identity, bitwise
// complement, or zigzag), subtracts the minimum when that shortens the
// required bit width and the minimum fits in 31 bits, then searches a small set of candidate short-token
// widths (nbits0-2, nbits0-1, nbits0, nbits0+1, where
// nbits0 = (nbits+2)>>1, skipping the +1 candidate below 8 bits) for the
// one that packs the tile smallest. The float codec packs each value as an
// exponent delta from the block's shared minimum exponent plus an explicit
// mantissa, through a single bit-packing path rather than hardware-specific
// SIMD lane layouts — only the header and payload content are part of the
// codec's contract, not any particular in-register grouping.
package tile

import (
	"math"
	"math/bits"

	"github.com/rpnenv/pack/bitstream"
	"github.com/rpnenv/pack/packerr"
)

// --- Integer tile codec --------------------------------------------------

// SignMode records how an integer tile's values were converted to
// unsigned tokens, per tile_encoders.c's decode_tile sign-restoration
// codes.
type SignMode uint8

const (
	SignNonNeg SignMode = iota // identity: token == value
	SignAllNeg                 // bitwise complement: value == ^token
	SignMixed                  // zigzag
)

// Policy records which token layout an integer tile used.
type Policy uint8

const (
	PolicyFlat     Policy = iota // every token is nbitsMax wide
	PolicySplit                  // each token prefixed by a 1-bit short/full discriminator
	PolicyConstant               // a single repeated value
)

func detectSign(values []int32) SignMode {
	allNonNeg, allNeg := true, true
	for _, v := range values {
		if v < 0 {
			allNonNeg = false
		}
		if v >= 0 {
			allNeg = false
		}
	}
	switch {
	case allNonNeg:
		return SignNonNeg
	case allNeg:
		return SignAllNeg
	default:
		return SignMixed
	}
}

func zigzag(v int32) uint32   { return uint32((v << 1) ^ (v >> 31)) }
func unzigzag(u uint32) int32 { return int32(u>>1) ^ -int32(u&1) }

func toUnsigned(values []int32, mode SignMode) []uint32 {
	out := make([]uint32, len(values))
	for i, v := range values {
		switch mode {
		case SignNonNeg:
			out[i] = uint32(v)
		case SignAllNeg:
			out[i] = ^uint32(v)
		default:
			out[i] = zigzag(v)
		}
	}
	return out
}

func fromUnsigned(vals []uint32, mode SignMode) []int32 {
	out := make([]int32, len(vals))
	for i, u := range vals {
		switch mode {
		case SignNonNeg:
			out[i] = int32(u)
		case SignAllNeg:
			out[i] = int32(^u)
		default:
			out[i] = unzigzag(u)
		}
	}
	return out
}

func bitsNeeded(v uint32) int {
	if v == 0 {
		return 0
	}
	return bits.Len32(v)
}

// shortTokenWidth searches the candidate short-token widths
// {nbits0-2, nbits0-1, nbits0, nbits0+1}, nbits0 = (nbits+2)>>1 (skipping
// the +1 candidate when nbits < 8), and returns the width minimizing total
// encoded bits for vals against a full-token width of nbits.
func shortTokenWidth(vals []uint32, nbits int) int {
	nbits0 := (nbits + 2) >> 1
	candidates := []int{nbits0 - 2, nbits0 - 1, nbits0}
	if nbits >= 8 {
		candidates = append(candidates, nbits0+1)
	}
	best := nbits
	bestCost := len(vals) * (1 + nbits)
	for _, nb0 := range candidates {
		if nb0 < 1 || nb0 >= nbits {
			continue
		}
		limit := uint32(1)<<uint(nb0) - 1
		cost := 0
		for _, v := range vals {
			if v <= limit {
				cost += 1 + nb0
			} else {
				cost += 1 + nbits
			}
		}
		if cost < bestCost {
			bestCost = cost
			best = nb0
		}
	}
	return best
}

// IntTile is an encoded integer tile.
type IntTile struct {
	n        int
	sign     SignMode
	policy   Policy
	nbitsMax int
	nb0      int
	min0     bool
	min      uint32
	constVal uint32
	words    []uint32
}

// EncodeInt encodes 1..64 signed integer values into a tile.
func EncodeInt(values []int32) (*IntTile, error) {
	if len(values) < 1 || len(values) > 64 {
		return nil, packerr.ErrInvalidInput
	}
	sign := detectSign(values)
	unsigned := toUnsigned(values, sign)

	t := &IntTile{n: len(values), sign: sign}

	allSame := true
	for _, u := range unsigned {
		if u != unsigned[0] {
			allSame = false
			break
		}
	}
	if allSame {
		t.policy = PolicyConstant
		t.constVal = unsigned[0]
		t.nbitsMax = bitsNeeded(unsigned[0])
		return t.pack(nil)
	}

	min := unsigned[0]
	max := unsigned[0]
	for _, u := range unsigned {
		if u < min {
			min = u
		}
		if u > max {
			max = u
		}
	}
	nbitsFull := bitsNeeded(max)
	nbitsReduced := bitsNeeded(max - min)
	// the 5-bit nbitsm field holds 0..31, so a minimum needing all 32 bits is
	// not subtracted (nbitsm 0 must mean "no minimum stored")
	min0 := nbitsReduced < nbitsFull && bitsNeeded(min) < 32
	work := unsigned
	nbitsMax := nbitsFull
	if min0 {
		work = make([]uint32, len(unsigned))
		for i, u := range unsigned {
			work[i] = u - min
		}
		nbitsMax = nbitsReduced
		t.min0 = true
		t.min = min
	}
	t.nbitsMax = nbitsMax

	nb0 := shortTokenWidth(work, nbitsMax)
	flatCost := len(work) * nbitsMax
	splitCost := 0
	limit := uint32(1)<<uint(nb0) - 1
	for _, v := range work {
		if v <= limit {
			splitCost += 1 + nb0
		} else {
			splitCost += 1 + nbitsMax
		}
	}
	if nb0 < nbitsMax && splitCost < flatCost {
		t.policy = PolicySplit
		t.nb0 = nb0
	} else {
		t.policy = PolicyFlat
	}
	return t.pack(work)
}

func (t *IntTile) pack(work []uint32) (*IntTile, error) {
	s := bitstream.New(bitstream.BigEndian, 4+t.n)
	hdr := uint32(t.policy&0x3)<<14 | uint32(t.sign&0x3)<<12 | uint32(t.nbitsMax&0x3f)<<6 | uint32(t.nb0&0x3f)
	if err := s.InsertBits(hdr, 16); err != nil {
		return nil, err
	}
	if t.policy == PolicyConstant {
		if t.nbitsMax > 0 {
			if err := s.InsertBits(t.constVal, t.nbitsMax); err != nil {
				return nil, err
			}
		}
		s.Flush()
		t.words = s.Words()
		return t, nil
	}
	nbitsm := 0
	if t.min0 {
		nbitsm = bitsNeeded(t.min)
	}
	if err := s.InsertBits(uint32(nbitsm), 5); err != nil {
		return nil, err
	}
	if nbitsm > 0 {
		if err := s.InsertBits(t.min, nbitsm); err != nil {
			return nil, err
		}
	}
	limit := uint32(1)<<uint(t.nb0) - 1
	for _, v := range work {
		switch t.policy {
		case PolicyFlat:
			if err := s.InsertBits(v, t.nbitsMax); err != nil {
				return nil, err
			}
		case PolicySplit:
			if v <= limit {
				if err := s.InsertBits(0, 1); err != nil {
					return nil, err
				}
				if t.nb0 > 0 {
					if err := s.InsertBits(v, t.nb0); err != nil {
						return nil, err
					}
				}
			} else {
				if err := s.InsertBits(1, 1); err != nil {
					return nil, err
				}
				if err := s.InsertBits(v, t.nbitsMax); err != nil {
					return nil, err
				}
			}
		}
	}
	s.Flush()
	t.words = s.Words()
	return t, nil
}

// Words returns the tile's packed 32-bit words.
func (t *IntTile) Words() []uint32 { return t.words }

// DecodeInt decodes the n values previously packed into words by EncodeInt.
func DecodeInt(words []uint32, n int) ([]int32, error) {
	if n < 1 || n > 64 {
		return nil, packerr.ErrInvalidInput
	}
	r := bitstream.NewReader(bitstream.BigEndian, words)
	hdr, err := r.ExtractBits(16)
	if err != nil {
		return nil, err
	}
	policy := Policy((hdr >> 14) & 0x3)
	sign := SignMode((hdr >> 12) & 0x3)
	nbitsMax := int((hdr >> 6) & 0x3f)
	nb0 := int(hdr & 0x3f)

	if policy == PolicyConstant {
		var v uint32
		if nbitsMax > 0 {
			v, err = r.ExtractBits(nbitsMax)
			if err != nil {
				return nil, err
			}
		}
		unsigned := make([]uint32, n)
		for i := range unsigned {
			unsigned[i] = v
		}
		return fromUnsigned(unsigned, sign), nil
	}

	var min uint32
	nbitsm, err := r.ExtractBits(5)
	if err != nil {
		return nil, err
	}
	hasMin := nbitsm > 0
	if hasMin {
		min, err = r.ExtractBits(int(nbitsm))
		if err != nil {
			return nil, err
		}
	}

	unsigned := make([]uint32, n)
	for i := 0; i < n; i++ {
		switch policy {
		case PolicyFlat:
			v, err := r.ExtractBits(nbitsMax)
			if err != nil {
				return nil, err
			}
			unsigned[i] = v
		case PolicySplit:
			disc, err := r.ExtractBits(1)
			if err != nil {
				return nil, err
			}
			if disc == 0 {
				var v uint32
				if nb0 > 0 {
					v, err = r.ExtractBits(nb0)
					if err != nil {
						return nil, err
					}
				}
				unsigned[i] = v
			} else {
				v, err := r.ExtractBits(nbitsMax)
				if err != nil {
					return nil, err
				}
				unsigned[i] = v
			}
		}
	}
	if hasMin {
		for i := range unsigned {
			unsigned[i] += min
		}
	}
	return fromUnsigned(unsigned, sign), nil
}

// --- Float 4x4 block codec ------------------------------------------------

// FloatBlock is an encoded 4x4 (16-value) float block.
type FloatBlock struct {
	emin  int
	ebits int
	sbits int
	sign  bool // mixed-sign flag
	mbits int
	words []uint32
}

func exponentOf(bits uint32) int { return int((bits >> 23) & 0xff) }
func mantissaOf(bits uint32) uint32 {
	return bits&0x7fffff | 0x800000 // explicit hidden one
}

// EncodeFloatBlock4x4 encodes exactly 16 float32 values into a block, given
// a target total bit width nbits per value. Exact zero is not special-cased:
// its exponent field is 0, so it takes part in the block's shared exponent
// range like any other value (widening that range when the other values are
// normal numbers), and with exponent 0 and a zero fraction it restores to
// exactly ±0.0.
func EncodeFloatBlock4x4(values []float32, nbits int) (*FloatBlock, error) {
	if len(values) != 16 {
		return nil, packerr.ErrInvalidInput
	}
	if nbits < 3 || nbits > 23 {
		return nil, packerr.ErrInvalidInput
	}

	bitsArr := make([]uint32, 16)
	emin, emax := 255, 0
	mixedSign := false
	for i, v := range values {
		b := math.Float32bits(v)
		bitsArr[i] = b
		e := exponentOf(b)
		if e < emin {
			emin = e
		}
		if e > emax {
			emax = e
		}
		if (b >> 31) != (bitsArr[0] >> 31) {
			mixedSign = true
		}
	}
	erange := emax - emin
	ebits := bitsNeeded(uint32(erange))
	if ebits > 7 {
		return nil, packerr.ErrInvalidInput
	}
	sbits := 0
	if mixedSign {
		sbits = 1
	}
	mbits := nbits - ebits - sbits
	if mbits < 0 {
		mbits = 0
	}
	if mbits > 24 {
		mbits = 24
	}

	fb := &FloatBlock{emin: emin, ebits: ebits, sbits: sbits, sign: mixedSign, mbits: mbits}

	s := bitstream.New(bitstream.BigEndian, 10)
	hdr := uint32(emin&0xff)<<8 | uint32(0)<<5 /* spare */ | boolBit(mixedSign)<<4 | boolBit(sbits == 1)<<3 | uint32(ebits&0x7)
	if err := s.InsertBits(hdr, 16); err != nil {
		return nil, err
	}
	for _, b := range bitsArr {
		e := exponentOf(b)
		m := mantissaOf(b) >> uint(24-mbits) // keep top mbits of the 24-bit (hidden-one) mantissa
		de := uint32(e - emin)
		if ebits > 0 {
			if err := s.InsertBits(de, ebits); err != nil {
				return nil, err
			}
		}
		if sbits == 1 {
			if err := s.InsertBits(boolBit(b>>31 != 0), 1); err != nil {
				return nil, err
			}
		}
		if mbits > 0 {
			if err := s.InsertBits(m, mbits); err != nil {
				return nil, err
			}
		}
	}
	s.Flush()
	fb.words = s.Words()
	return fb, nil
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// DecodeFloatBlock4x4WithWidth restores the 16 values a FloatBlock encoded
// with the given total per-value bit width nbits. The header alone does not
// record mbits (only emin/ebits/sbits), so the caller must supply the same
// nbits used by EncodeFloatBlock4x4 to re-derive it.
func DecodeFloatBlock4x4WithWidth(words []uint32, nbits int) ([]float32, error) {
	r := bitstream.NewReader(bitstream.BigEndian, words)
	hdr, err := r.ExtractBits(16)
	if err != nil {
		return nil, err
	}
	emin := int((hdr >> 8) & 0xff)
	sbits := 0
	if (hdr>>3)&1 != 0 {
		sbits = 1
	}
	ebits := int(hdr & 0x7)
	mbits := nbits - ebits - sbits
	if mbits < 0 {
		mbits = 0
	}
	if mbits > 24 {
		mbits = 24
	}

	out := make([]float32, 16)
	for i := range out {
		var de uint32
		if ebits > 0 {
			de, err = r.ExtractBits(ebits)
			if err != nil {
				return nil, err
			}
		}
		negative := false
		if sbits == 1 {
			sb, err := r.ExtractBits(1)
			if err != nil {
				return nil, err
			}
			negative = sb != 0
		}
		var m uint32
		if mbits > 0 {
			m, err = r.ExtractBits(mbits)
			if err != nil {
				return nil, err
			}
		}
		e := int(de) + emin
		mantissa24 := m << uint(24-mbits)
		frac := mantissa24 &^ 0x800000 // drop the restored hidden one
		bitsOut := uint32(e&0xff)<<23 | (frac & 0x7fffff)
		if negative {
			bitsOut |= 0x80000000
		}
		out[i] = math.Float32frombits(bitsOut)
	}
	return out, nil
}
