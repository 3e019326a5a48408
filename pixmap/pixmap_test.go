package pixmap

import "testing"

func bitsEqual(t *testing.T, got, want *Bitmap) {
	t.Helper()
	if got.Len() != want.Len() {
		t.Fatalf("length mismatch: got %d, want %d", got.Len(), want.Len())
	}
	for i := 0; i < want.Len(); i++ {
		if got.Get(i) != want.Get(i) {
			t.Fatalf("bit %d mismatch: got %v, want %v", i, got.Get(i), want.Get(i))
		}
	}
}

func TestBuildEqualUint32(t *testing.T) {
	data := []uint32{1, 2, 9999, 3, 9999, 4}
	bm := BuildEqualUint32(data, 9999, 0)
	for i, v := range data {
		want := v == 9999
		if bm.Get(i) != want {
			t.Errorf("elem %d: got %v, want %v", i, bm.Get(i), want)
		}
	}
	if bm.Ones() != 2 {
		t.Errorf("got %d ones, want 2", bm.Ones())
	}
}

func TestBuildLessGreaterInt32(t *testing.T) {
	data := []int32{-5, 0, 5, 10, -10}
	lt := BuildLessInt32(data, 0)
	gt := BuildGreaterInt32(data, 0)
	for i, v := range data {
		if lt.Get(i) != (v < 0) {
			t.Errorf("lt elem %d wrong", i)
		}
		if gt.Get(i) != (v > 0) {
			t.Errorf("gt elem %d wrong", i)
		}
	}
}

func TestBuildLessGreaterFloat32(t *testing.T) {
	data := []float32{-1.5, 0, 2.5, -3.5, 1}
	lt := BuildLessFloat32(data, 0)
	for i, v := range data {
		if lt.Get(i) != (v < 0) {
			t.Errorf("elem %d wrong", i)
		}
	}
}

func runEncodeDecodeRoundTrip(t *testing.T, nelem int, setBits func(bm *Bitmap)) {
	t.Helper()
	orig := New(nelem)
	setBits(orig)
	ones := 0
	for i := 0; i < nelem; i++ {
		if orig.Get(i) {
			ones++
		}
	}
	orig.ones = ones

	enc := orig.Dup()
	if err := enc.Encode(HintAuto); err != nil {
		t.Fatal(err)
	}
	if !enc.Encoded() {
		t.Fatal("expected encoded bitmap")
	}
	if err := enc.Decode(); err != nil {
		t.Fatal(err)
	}
	bitsEqual(t, enc, orig)
}

func TestEncodeDecodeAllZeros(t *testing.T) {
	runEncodeDecodeRoundTrip(t, 200, func(bm *Bitmap) {})
}

func TestEncodeDecodeAllOnes(t *testing.T) {
	runEncodeDecodeRoundTrip(t, 200, func(bm *Bitmap) {
		for i := 0; i < bm.Len(); i++ {
			bm.Set(i)
		}
	})
}

func TestEncodeDecodeLongRuns(t *testing.T) {
	runEncodeDecodeRoundTrip(t, 500, func(bm *Bitmap) {
		for i := 50; i < 400; i++ {
			bm.Set(i)
		}
	})
}

func TestEncodeDecodeSparse(t *testing.T) {
	runEncodeDecodeRoundTrip(t, 300, func(bm *Bitmap) {
		for i := 0; i < bm.Len(); i += 7 {
			bm.Set(i)
		}
	})
}

func TestEncodeDecodeMixedRuns(t *testing.T) {
	runEncodeDecodeRoundTrip(t, 1000, func(bm *Bitmap) {
		pos := 0
		runLens := []int{1, 3, 20, 2, 60, 1, 5, 100, 400}
		bit := false
		for _, r := range runLens {
			for k := 0; k < r && pos < bm.Len(); k++ {
				if bit {
					bm.Set(pos)
				}
				pos++
			}
			bit = !bit
		}
	})
}

func TestRestoreUint32(t *testing.T) {
	data := []uint32{1, 2, 3, 4, 5}
	bm := BuildEqualUint32(data, 3, 0)
	if err := bm.RestoreUint32(data, 999); err != nil {
		t.Fatal(err)
	}
	want := []uint32{1, 2, 999, 4, 5}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("elem %d: got %d, want %d", i, data[i], want[i])
		}
	}
}

func TestRestoreAfterEncodeDecode(t *testing.T) {
	data := make([]uint32, 128)
	for i := range data {
		data[i] = uint32(i)
	}
	bm := BuildLessUint32(data, 10)
	if err := bm.Encode(HintAuto); err != nil {
		t.Fatal(err)
	}
	if err := bm.RestoreUint32(data, 0xffffffff); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if data[i] != 0xffffffff {
			t.Errorf("elem %d should have been plugged, got %d", i, data[i])
		}
	}
	for i := 10; i < len(data); i++ {
		if data[i] != uint32(i) {
			t.Errorf("elem %d should be unchanged, got %d", i, data[i])
		}
	}
}

func TestEncodeHintPrefersFullForLongRuns(t *testing.T) {
	bm := New(200)
	for i := 20; i < 180; i++ {
		bm.Set(i)
	}
	hint := EncodeHint(bm)
	if hint&HintFull1 == 0 {
		t.Errorf("expected full encoding hint for long run of 1s, got mode %#x", hint)
	}
}
