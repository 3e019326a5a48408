package bitstream

import "testing"

func TestRoundTripBigEndian(t *testing.T) {
	s := New(BigEndian, 4)
	widths := []int{3, 17, 32, 1, 9}
	vals := []uint32{5, 90000, 0xdeadbeef, 1, 300}
	for i, w := range widths {
		if err := s.InsertBits(vals[i]&mask(w), w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := s.Rewind(false); err != nil {
		t.Fatal(err)
	}
	for i, w := range widths {
		got, err := s.ExtractBits(w)
		if err != nil {
			t.Fatal(err)
		}
		want := vals[i] & mask(w)
		if got != want {
			t.Errorf("field %d width %d: got %#x, want %#x", i, w, got, want)
		}
	}
}

func TestRoundTripLittleEndian(t *testing.T) {
	s := New(LittleEndian, 4)
	widths := []int{4, 12, 32, 7}
	vals := []uint32{9, 3000, 0xcafefade, 100}
	for i, w := range widths {
		if err := s.InsertBits(vals[i], w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := s.Rewind(false); err != nil {
		t.Fatal(err)
	}
	for i, w := range widths {
		got, err := s.ExtractBits(w)
		if err != nil {
			t.Fatal(err)
		}
		want := vals[i] & mask(w)
		if got != want {
			t.Errorf("field %d width %d: got %#x, want %#x", i, w, got, want)
		}
	}
}

func TestSignedExtension(t *testing.T) {
	s := New(BigEndian, 1)
	neg3 := int32(-3)
	if err := s.InsertBits(uint32(neg3), 6); err != nil {
		t.Fatal(err)
	}
	s.Flush()
	s.Rewind(false)
	got, err := s.ExtractSigned(6)
	if err != nil {
		t.Fatal(err)
	}
	if got != -3 {
		t.Errorf("got %d, want -3", got)
	}
}

func TestEndiansAreIncompatible(t *testing.T) {
	w := New(BigEndian, 4)
	w.InsertBits(0xabcd1234, 32)
	w.Flush()

	// A whole 32-bit word reads back the same in either orientation; the
	// orientations differ in which end of the word a narrower field comes from.
	r := NewReader(LittleEndian, w.Words())
	v, err := r.ExtractBits(16)
	if err != nil {
		t.Fatal(err)
	}
	if v == 0xabcd {
		t.Fatal("big-endian and little-endian extraction should disagree on the first 16-bit field")
	}
}

func TestPushDoesNotAdvance(t *testing.T) {
	s := New(BigEndian, 2)
	s.InsertBits(0x5, 4)
	before := s.in
	if err := s.Push(); err != nil {
		t.Fatal(err)
	}
	s.InsertBits(0x3, 4)
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if s.in != before+1 {
		t.Fatalf("expected exactly one word advanced by flush, got in=%d (was %d)", s.in, before)
	}
}

func TestSaveRestoreState(t *testing.T) {
	s := New(BigEndian, 8)
	s.InsertBits(1, 10)
	saved := s.SaveState()
	s.InsertBits(2, 10)
	s.InsertBits(3, 10)
	if err := s.RestoreState(saved); err != nil {
		t.Fatal(err)
	}
	s.InsertBits(9, 10)
	s.Flush()
	s.Rewind(false)
	a, _ := s.ExtractBits(10)
	b, _ := s.ExtractBits(10)
	if a != 1 || b != 9 {
		t.Errorf("got a=%d b=%d, want 1 9", a, b)
	}
}

func TestResizeGrowsUserBufferRejected(t *testing.T) {
	r := NewReader(BigEndian, []uint32{1, 2})
	if err := r.Resize(10); err == nil {
		t.Fatal("expected error resizing a user-owned buffer")
	}
}

func TestDupIsIndependentAndOwned(t *testing.T) {
	s := New(BigEndian, 2)
	s.InsertBits(0x1234, 16)
	s.Flush()
	d := s.Dup()
	if d.owner != OwnerBuffer {
		t.Errorf("duplicate should be buffer-owned, got %v", d.owner)
	}
	d.InsertBits(0xffff, 16)
	d.Flush()
	if s.in == d.in {
		t.Error("duplicate should diverge independently from the original")
	}
}

func TestExtractPastEndErrors(t *testing.T) {
	s := New(BigEndian, 1)
	s.InsertBits(1, 4)
	s.Flush()
	s.Rewind(false)
	s.ExtractBits(4)
	// Flush zero-padded the 4 bits to one full word, so 28 bits remain.
	if _, err := s.ExtractBits(29); err == nil {
		t.Fatal("expected capacity error reading past written data")
	}
}
