package pipeline

import (
	"testing"

	"github.com/rpnenv/pack/wordstream"
)

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(DeflateFilterID, "deflate2", deflateFilter); err == nil {
		t.Fatal("expected error re-registering an occupied id")
	}
}

func TestRegisterAndAddress(t *testing.T) {
	r := &Registry{}
	called := false
	fn := func(mode Mode, dims []int, meta *FilterMeta, buf []uint32, out *wordstream.Stream) (*FilterMeta, int, error) {
		called = true
		return nil, 0, nil
	}
	if err := r.Register(42, "probe", fn); err != nil {
		t.Fatal(err)
	}
	if r.Name(42) != "probe" {
		t.Fatalf("got name %q, want probe", r.Name(42))
	}
	got := r.Address(42)
	if got == nil {
		t.Fatal("expected registered filter address")
	}
	got(ModeValidate, nil, &FilterMeta{}, nil, nil)
	if !called {
		t.Fatal("expected registered filter to be callable")
	}
}

func TestDimsPackUnpackRoundTrip(t *testing.T) {
	dims := []int{4, 8, 2}
	meta, err := packDims(dims)
	if err != nil {
		t.Fatal(err)
	}
	got := unpackDims(meta)
	if len(got) != len(dims) {
		t.Fatalf("got %v, want %v", got, dims)
	}
	for i := range dims {
		if got[i] != dims[i] {
			t.Errorf("dim %d: got %d, want %d", i, got[i], dims[i])
		}
	}
}

func TestFilterMetaPackUnpackRoundTrip(t *testing.T) {
	meta := &FilterMeta{ID: 7, Flags: 3, Payload: []uint32{111, 222, 333}}
	words := meta.pack()
	got, err := unpackMeta(words)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != meta.ID || got.Flags != meta.Flags || len(got.Payload) != len(meta.Payload) {
		t.Fatalf("got %+v, want %+v", got, meta)
	}
	for i := range meta.Payload {
		if got.Payload[i] != meta.Payload[i] {
			t.Errorf("payload %d: got %d, want %d", i, got.Payload[i], meta.Payload[i])
		}
	}
}

func TestRunForwardReverseNoFilters(t *testing.T) {
	r := NewRegistry()
	data := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	dims := []int{8}

	out := wordstream.New(32)
	if err := r.RunForward(data, dims, nil, out); err != nil {
		t.Fatal(err)
	}

	in := wordstream.New(32)
	if err := in.Insert(out.Words()); err != nil {
		t.Fatal(err)
	}
	in.RewindRead()

	got, gotDims, err := r.RunReverse(in, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotDims) != 1 || gotDims[0] != 8 {
		t.Fatalf("got dims %v, want [8]", gotDims)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("elem %d: got %d, want %d", i, got[i], data[i])
		}
	}
}

func TestRunForwardReverseWithDeflate(t *testing.T) {
	r := NewRegistry()
	data := make([]uint32, 64)
	for i := range data {
		data[i] = uint32(i % 5) // compressible pattern
	}
	dims := []int{64}
	chain := Chain{{ID: DeflateFilterID}}

	out := wordstream.New(128)
	if err := r.RunForward(data, dims, chain, out); err != nil {
		t.Fatal(err)
	}

	in := wordstream.New(128)
	if err := in.Insert(out.Words()); err != nil {
		t.Fatal(err)
	}
	in.RewindRead()

	got, gotDims, err := r.RunReverse(in, len(chain))
	if err != nil {
		t.Fatal(err)
	}
	if len(gotDims) != 1 || gotDims[0] != 64 {
		t.Fatalf("got dims %v, want [64]", gotDims)
	}
	if len(got) != len(data) {
		t.Fatalf("got %d words, want %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("elem %d: got %d, want %d", i, got[i], data[i])
		}
	}
}

func TestValidateUnknownFilter(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Validate(&FilterMeta{ID: 99}); err == nil {
		t.Fatal("expected ErrUnknownFilter for an unregistered id")
	}
}
