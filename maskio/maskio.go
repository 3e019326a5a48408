// Package maskio implements mask-driven compress/expand over 32-bit-word
// arrays: compress_store gathers the elements a mask selects into a
// contiguous stream, expand_fill and expand_replace scatter a compressed
// stream back out at the selected positions. A set mask bit advances the
// source pointer and copies; a clear bit fills or leaves the destination
// alone. This implementation walks the mask bit by bit rather than via a
// SIMD shuffle table, trading lane-width parallelism for portability.
package maskio

import "github.com/rpnenv/pack/packerr"

// Endian selects which end of a 32-bit mask controls element 0.
type Endian int

const (
	BigEndian    Endian = iota // element 0 controlled by bit 31
	LittleEndian               // element 0 controlled by bit 0
)

func bitSet(mask uint32, i int, endian Endian) bool {
	if endian == BigEndian {
		return mask&(1<<uint(31-i)) != 0
	}
	return mask&(1<<uint(i)) != 0
}

// CompressStoreN writes the elements of src[:n] whose mask bit is set into
// a newly allocated contiguous slice, preserving their relative order.
func CompressStoreN(src []uint32, n int, mask uint32, endian Endian) ([]uint32, error) {
	if n < 0 || n > len(src) {
		return nil, packerr.ErrInvalidInput
	}
	out := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		if bitSet(mask, i, endian) {
			out = append(out, src[i])
		}
	}
	return out, nil
}

// CompressStore32 is CompressStoreN with n fixed at 32.
func CompressStore32(src []uint32, mask uint32, endian Endian) ([]uint32, error) {
	return CompressStoreN(src, 32, mask, endian)
}

// ExpandReplaceN writes, at each of the first n positions of dst whose mask
// bit is set, the next element of compressed (in order); positions whose
// bit is clear are left unchanged. dst must have at least n elements.
func ExpandReplaceN(compressed []uint32, dst []uint32, n int, mask uint32, endian Endian) error {
	if n < 0 || n > len(dst) {
		return packerr.ErrInvalidInput
	}
	si := 0
	for i := 0; i < n; i++ {
		if bitSet(mask, i, endian) {
			if si >= len(compressed) {
				return packerr.ErrCapacity
			}
			dst[i] = compressed[si]
			si++
		}
	}
	return nil
}

// ExpandReplace32 is ExpandReplaceN with n fixed at 32.
func ExpandReplace32(compressed []uint32, dst []uint32, mask uint32, endian Endian) error {
	return ExpandReplaceN(compressed, dst, 32, mask, endian)
}

// ExpandFillN writes, at each of the first n positions of dst whose mask
// bit is set, the next element of compressed (in order); positions whose
// bit is clear are overwritten with fill. dst must have at least n
// elements.
func ExpandFillN(compressed []uint32, dst []uint32, n int, mask uint32, fill uint32, endian Endian) error {
	if n < 0 || n > len(dst) {
		return packerr.ErrInvalidInput
	}
	si := 0
	for i := 0; i < n; i++ {
		if bitSet(mask, i, endian) {
			if si >= len(compressed) {
				return packerr.ErrCapacity
			}
			dst[i] = compressed[si]
			si++
		} else {
			dst[i] = fill
		}
	}
	return nil
}

// ExpandFill32 is ExpandFillN with n fixed at 32.
func ExpandFill32(compressed []uint32, dst []uint32, mask uint32, fill uint32, endian Endian) error {
	return ExpandFillN(compressed, dst, 32, mask, fill, endian)
}
