package arrayinfo

import (
	"math"
	"testing"
)

func TestFakeSignedRoundTrip(t *testing.T) {
	vals := []float32{0, 1, -1, 64.01, -64.01, 1e30, -1e-30}
	for _, v := range vals {
		bits := math.Float32bits(v)
		s := FakeSignedInt32(bits)
		back := FakeSignedToBits(s)
		if back != bits {
			t.Errorf("round trip failed for %v: got bits %#x, want %#x", v, back, bits)
		}
	}
}

func TestFakeSignedOrdering(t *testing.T) {
	vals := []float32{-5, -1, -0.5, 0, 0.5, 1, 5}
	for i := 1; i < len(vals); i++ {
		a := FakeSignedInt32(math.Float32bits(vals[i-1]))
		b := FakeSignedInt32(math.Float32bits(vals[i]))
		if a >= b {
			t.Errorf("ordering violated between %v and %v: %d >= %d", vals[i-1], vals[i], a, b)
		}
	}
}

func TestAnalyzeUint32(t *testing.T) {
	e, err := AnalyzeUint32([]uint32{5, 0, 3, 7, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if e.Mina != 0 || e.Maxa != 7 || e.Min0 != 1 {
		t.Errorf("got %+v", e)
	}
	if !e.AllP || e.AllM {
		t.Errorf("expected AllP, got %+v", e)
	}
}

func TestAnalyzeInt32MixedSign(t *testing.T) {
	e, err := AnalyzeInt32([]int32{-3, 5, 0, -1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if e.Mins != -3 || e.Maxs != 5 {
		t.Errorf("got mins=%d maxs=%d", e.Mins, e.Maxs)
	}
	if e.AllP || e.AllM {
		t.Errorf("expected mixed sign, got AllP=%v AllM=%v", e.AllP, e.AllM)
	}
	if e.Maxa != 5 || e.Mina != 0 || e.Min0 != 1 {
		t.Errorf("got %+v", e)
	}
}

func TestAnalyzeInt32AllNegative(t *testing.T) {
	e, err := AnalyzeInt32([]int32{-3, -5, -1})
	if err != nil {
		t.Fatal(err)
	}
	if !e.AllM || e.AllP {
		t.Errorf("expected AllM, got %+v", e)
	}
}

func TestAnalyzeFloat32(t *testing.T) {
	data := []float32{1.0, -2.0, 0.5, -0.25, 3.0}
	e, err := AnalyzeFloat32(data)
	if err != nil {
		t.Fatal(err)
	}
	wantMin := FakeSignedInt32(math.Float32bits(-2.0))
	wantMax := FakeSignedInt32(math.Float32bits(3.0))
	if e.Mins != wantMin || e.Maxs != wantMax {
		t.Errorf("got mins=%d maxs=%d, want mins=%d maxs=%d", e.Mins, e.Maxs, wantMin, wantMax)
	}
	if e.AllP || e.AllM {
		t.Errorf("expected mixed sign, got %+v", e)
	}
}

func TestAnalyzeFloat32Missing(t *testing.T) {
	data := []float32{1, 2, -9999, 3, -9999}
	e, ok, err := AnalyzeFloat32Missing(data, math.Float32bits(-9999), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	wantMin := FakeSignedInt32(math.Float32bits(1))
	wantMax := FakeSignedInt32(math.Float32bits(3))
	if e.Mins != wantMin || e.Maxs != wantMax {
		t.Errorf("got mins=%d maxs=%d, want %d %d", e.Mins, e.Maxs, wantMin, wantMax)
	}
}

func TestAnalyzeFloat32MissingAllMissing(t *testing.T) {
	data := []float32{-9999, -9999}
	_, ok, err := AnalyzeFloat32Missing(data, math.Float32bits(-9999), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false when every element is missing and no replacement given")
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	if _, err := AnalyzeUint32(nil); err == nil {
		t.Error("expected error for empty array")
	}
	if _, err := AnalyzeInt32(nil); err == nil {
		t.Error("expected error for empty array")
	}
	if _, err := AnalyzeFloat32(nil); err == nil {
		t.Error("expected error for empty array")
	}
}
