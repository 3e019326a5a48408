// Package arrayinfo computes extrema over numeric arrays: signed min/max,
// min/max absolute value, smallest non-zero absolute value, and the
// all-negative / all-non-negative flags that downstream quantizers need.
package arrayinfo

import (
	"math"

	"github.com/rpnenv/pack/packerr"
)

// Extrema is the summary of one array's value range. For float arrays, Mins
// and Maxs are stored as the fake-signed-int transform of the IEEE bit
// pattern (see FakeSignedInt32) so that ordinary signed-integer min/max
// tracking yields the true float min/max without NaN-comparison semantics.
type Extrema struct {
	Mins int32  // signed min (fake-signed-int pattern for floats)
	Maxs int32  // signed max (fake-signed-int pattern for floats)
	Mina uint32 // smallest absolute value
	Min0 uint32 // smallest non-zero absolute value (0 if no non-zero element)
	Maxa uint32 // largest absolute value
	AllP bool   // all values >= 0
	AllM bool   // all values < 0
}

// FakeSignedInt32 applies (u & 0x7FFFFFFF) ^ (i >> 31) to the IEEE-32 bit
// pattern u, producing a signed int32 whose ordering matches float ordering.
func FakeSignedInt32(bits uint32) int32 {
	mask := uint32(int32(bits) >> 31) // 0x00000000 or 0xFFFFFFFF
	return int32((bits & 0x7fffffff) ^ mask)
}

// FakeSignedToBits inverts FakeSignedInt32, recovering the original IEEE-32
// bit pattern from a fake-signed transform value.
func FakeSignedToBits(t int32) uint32 {
	if t >= 0 {
		return uint32(t)
	}
	return 0x80000000 | (^uint32(t) & 0x7fffffff)
}

func abs32(v int32) uint32 {
	if v < 0 {
		return uint32(-v)
	}
	return uint32(v)
}

// AnalyzeUint32 computes the extrema record for an unsigned array.
func AnalyzeUint32(data []uint32) (Extrema, error) {
	if len(data) == 0 {
		return Extrema{}, packerr.ErrInvalidInput
	}
	e := Extrema{Mina: data[0], Maxa: data[0], Min0: 0, AllP: true}
	min0 := ^uint32(0)
	haveNonZero := false
	for _, v := range data {
		if v < e.Mina {
			e.Mina = v
		}
		if v > e.Maxa {
			e.Maxa = v
		}
		if v != 0 && v < min0 {
			min0 = v
			haveNonZero = true
		}
	}
	if haveNonZero {
		e.Min0 = min0
	}
	e.Mins = int32(e.Mina)
	e.Maxs = int32(e.Maxa)
	e.AllM = false
	return e, nil
}

// AnalyzeInt32 computes the extrema record for a signed-integer array.
func AnalyzeInt32(data []int32) (Extrema, error) {
	if len(data) == 0 {
		return Extrema{}, packerr.ErrInvalidInput
	}
	e := Extrema{Mins: data[0], Maxs: data[0]}
	e.Mina = abs32(data[0])
	e.Maxa = e.Mina
	min0 := ^uint32(0)
	haveNonZero := false
	allAND, allOR := ^uint32(0), uint32(0)
	for _, v := range data {
		if v < e.Mins {
			e.Mins = v
		}
		if v > e.Maxs {
			e.Maxs = v
		}
		a := abs32(v)
		if a < e.Mina {
			e.Mina = a
		}
		if a > e.Maxa {
			e.Maxa = a
		}
		if a != 0 && a < min0 {
			min0 = a
			haveNonZero = true
		}
		u := uint32(v)
		allAND &= u
		allOR |= u
	}
	if haveNonZero {
		e.Min0 = min0
	}
	e.AllM = allAND>>31 == 1 // every value's MSB set => every value negative
	e.AllP = allOR>>31 == 0  // every value's MSB clear => every value non-negative
	return e, nil
}

// AnalyzeFloat32 computes the extrema record for an IEEE-32 float array.
// Mins/Maxs are the fake-signed-int transform of each value's bit pattern.
func AnalyzeFloat32(data []float32) (Extrema, error) {
	if len(data) == 0 {
		return Extrema{}, packerr.ErrInvalidInput
	}
	bits := make([]uint32, len(data))
	for i, f := range data {
		bits[i] = math.Float32bits(f)
	}
	e := Extrema{}
	e.Mins = FakeSignedInt32(bits[0])
	e.Maxs = e.Mins
	e.Mina = bits[0] & 0x7fffffff
	e.Maxa = e.Mina
	min0 := ^uint32(0)
	haveNonZero := false
	allAND, allOR := ^uint32(0), uint32(0)
	for _, b := range bits {
		s := FakeSignedInt32(b)
		if s < e.Mins {
			e.Mins = s
		}
		if s > e.Maxs {
			e.Maxs = s
		}
		a := b & 0x7fffffff
		if a < e.Mina {
			e.Mina = a
		}
		if a > e.Maxa {
			e.Maxa = a
		}
		if a != 0 && a < min0 {
			min0 = a
			haveNonZero = true
		}
		allAND &= b
		allOR |= b
	}
	if haveNonZero {
		e.Min0 = min0
	}
	e.AllM = allAND>>31 == 1
	e.AllP = allOR>>31 == 0
	return e, nil
}

// AnalyzeFloat32Missing computes the extrema record for a float array that
// carries a "missing value" pattern. A value v is missing when
// (bits(v) &^ mask) == (special &^ mask). Missing values are excluded from
// the scan. If replacement is nil, the first non-missing value's bits are
// substituted for every missing element before the scan (matching
// W32_replace_missing's "promote first non-missing value" behavior);
// otherwise replacement's bits are substituted.
//
// If every element is missing and no replacement is supplied, the returned
// Extrema is the degenerate all-zero record and ok is false — the caller
// (the quantizer) must treat this as a constant field.
func AnalyzeFloat32Missing(data []float32, special, mask uint32, replacement *float32) (e Extrema, ok bool, err error) {
	if len(data) == 0 {
		return Extrema{}, false, packerr.ErrInvalidInput
	}
	target := special &^ mask
	isMissing := func(bits uint32) bool { return (bits &^ mask) == target }

	var replBits uint32
	haveRepl := false
	if replacement != nil {
		replBits = math.Float32bits(*replacement)
		haveRepl = true
	} else {
		for _, f := range data {
			if b := math.Float32bits(f); !isMissing(b) {
				replBits = b
				haveRepl = true
				break
			}
		}
	}
	if !haveRepl {
		return Extrema{}, false, nil
	}

	filled := make([]float32, len(data))
	for i, f := range data {
		if isMissing(math.Float32bits(f)) {
			filled[i] = math.Float32frombits(replBits)
		} else {
			filled[i] = f
		}
	}
	e, err = AnalyzeFloat32(filled)
	return e, true, err
}
