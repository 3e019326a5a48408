package maskio

import (
	"math/bits"
	"testing"
)

func TestCompressStoreBigEndian(t *testing.T) {
	src := []uint32{10, 20, 30, 40, 50, 60, 70, 80}
	mask := uint32(0b10110010) << 24 // bits 31,29,28,25 set (BE: elements 0,2,3,6)
	out, err := CompressStoreN(src, 8, mask, BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{10, 30, 40, 70}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("elem %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestCompressStoreLittleEndian(t *testing.T) {
	src := []uint32{10, 20, 30, 40}
	mask := uint32(0b0101) // LE: elements 0 and 2
	out, err := CompressStoreN(src, 4, mask, LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{10, 30}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("elem %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestExpandReplaceLeavesOthersUnchanged(t *testing.T) {
	dst := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	compressed := []uint32{100, 300, 400, 700}
	mask := uint32(0b10110010) << 24
	if err := ExpandReplaceN(compressed, dst, 8, mask, BigEndian); err != nil {
		t.Fatal(err)
	}
	want := []uint32{100, 2, 300, 400, 5, 6, 700, 8}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("elem %d: got %d, want %d", i, dst[i], want[i])
		}
	}
}

func TestExpandFillOverwritesOthers(t *testing.T) {
	dst := make([]uint32, 4)
	compressed := []uint32{10, 30}
	mask := uint32(0b0101)
	if err := ExpandFillN(compressed, dst, 4, mask, 0xffffffff, LittleEndian); err != nil {
		t.Fatal(err)
	}
	want := []uint32{10, 0xffffffff, 30, 0xffffffff}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("elem %d: got %#x, want %#x", i, dst[i], want[i])
		}
	}
}

func TestCompressExpandRoundTrip(t *testing.T) {
	src := []uint32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
		17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}
	mask := uint32(0xa5a5a5a5)
	compressed, err := CompressStore32(src, mask, BigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) != bits.OnesCount32(mask) {
		t.Fatalf("got %d compressed elements, want %d", len(compressed), bits.OnesCount32(mask))
	}
	dst := make([]uint32, 32)
	if err := ExpandReplace32(compressed, dst, mask, BigEndian); err != nil {
		t.Fatal(err)
	}
	for i, v := range src {
		if bitSet(mask, i, BigEndian) && dst[i] != v {
			t.Errorf("elem %d: got %d, want %d", i, dst[i], v)
		}
	}
}

func TestExpandReplaceUnderflow(t *testing.T) {
	dst := make([]uint32, 4)
	if err := ExpandReplaceN([]uint32{1}, dst, 4, 0xf, LittleEndian); err == nil {
		t.Fatal("expected capacity error when compressed stream runs short")
	}
}
