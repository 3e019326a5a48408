// Package pipeline implements a registry of reversible "filter" functions
// that can be chained to transform a 32-bit word array forward (producing
// inverse-filter metadata) and later reverse (consuming that metadata to
// restore the array).
//
// Each filter implements four mutually-exclusive request modes (validate,
// forward-size, forward, reverse); a run iterates a chain of filters
// validate-then-size-then-execute, emitting concrete filter bodies for the
// dimensions sentinel (id 0), the terminator sentinel (id 255), and an
// optional deflate entropy pass (id 200). The filter table is a field on a
// constructed *Registry rather than process-wide state, so multiple
// independent pipelines can run concurrently without sharing registration.
package pipeline

import (
	"github.com/rpnenv/pack/packerr"
	"github.com/rpnenv/pack/wordstream"
)

// Mode is one of the four mutually-exclusive filter request modes.
type Mode int

const (
	ModeValidate Mode = iota // size (in words) of inverse-filter metadata
	ModeFwdSize               // worst-case output word count for PIPE_FORWARD
	ModeForward               // transform forward, emit inverse metadata
	ModeReverse               // consume inverse metadata, transform backward
)

const maxFilters = 256

// DimensionsFilterID and TerminatorFilterID are the two reserved sentinel
// filter IDs that terminate every pipeline run.
const (
	DimensionsFilterID = 0
	TerminatorFilterID = 255
	DeflateFilterID    = 200
)

// FilterMeta is a filter's metadata record: a 1-word prolog
// (size:16 | id:8 | flags:8) followed by size-1 filter-specific payload
// words.
type FilterMeta struct {
	ID      uint8
	Flags   uint8
	Payload []uint32
}

// Size is the total word count (prolog + payload) this metadata record
// occupies.
func (m *FilterMeta) Size() int { return 1 + len(m.Payload) }

func (m *FilterMeta) pack() []uint32 {
	out := make([]uint32, m.Size())
	out[0] = uint32(m.Size()&0xffff)<<16 | uint32(m.ID)<<8 | uint32(m.Flags)
	copy(out[1:], m.Payload)
	return out
}

func unpackMeta(words []uint32) (*FilterMeta, error) {
	if len(words) < 1 {
		return nil, packerr.ErrInvalidInput
	}
	hdr := words[0]
	size := int(hdr >> 16)
	id := uint8(hdr >> 8)
	flags := uint8(hdr)
	if size < 1 || size > len(words) {
		return nil, packerr.ErrInvariant
	}
	payload := make([]uint32, size-1)
	copy(payload, words[1:size])
	return &FilterMeta{ID: id, Flags: flags, Payload: payload}, nil
}

// FilterFunc implements one pipe filter across all four modes.
//
//   - ModeValidate: meta describes a forward-mode request; return the word
//     count the inverse-filter metadata will occupy.
//   - ModeFwdSize: given dims, return the worst-case output word count.
//   - ModeForward: transform buf in place and return the inverse metadata
//     to append to out, alongside the transformed word count.
//   - ModeReverse: meta is the inverse metadata; transform buf in place
//     back to its original form.
type FilterFunc func(mode Mode, dims []int, meta *FilterMeta, buf []uint32, out *wordstream.Stream) (*FilterMeta, int, error)

type registryEntry struct {
	fn   FilterFunc
	name string
}

// Registry is a filter dispatch table, constructed fresh by each caller
// rather than shared as process-wide mutable state.
type Registry struct {
	entries [maxFilters]registryEntry
}

// NewRegistry returns a Registry with the dimensions, terminator, and
// deflate filters already registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(DimensionsFilterID, "dims", dimensionsFilter)
	r.Register(TerminatorFilterID, "terminator", terminatorFilter)
	r.Register(DeflateFilterID, "deflate", deflateFilter)
	return r
}

// Register adds a filter function under id with the given name. id must be
// in [0, 256); registering an id that already holds a filter is an error.
func (r *Registry) Register(id int, name string, fn FilterFunc) error {
	if id < 0 || id >= maxFilters {
		return packerr.ErrInvalidInput
	}
	if r.entries[id].fn != nil {
		return packerr.ErrInvalidInput
	}
	r.entries[id] = registryEntry{fn: fn, name: name}
	return nil
}

// Address returns the filter function registered at id, or nil.
func (r *Registry) Address(id int) FilterFunc {
	if id < 0 || id >= maxFilters {
		return nil
	}
	return r.entries[id].fn
}

// Name returns the filter name registered at id, or "".
func (r *Registry) Name(id int) string {
	if id < 0 || id >= maxFilters {
		return ""
	}
	return r.entries[id].name
}

// IsDefined reports whether a filter is registered at id.
func (r *Registry) IsDefined(id int) bool {
	return id >= 0 && id < maxFilters && r.entries[id].fn != nil
}

// Validate calls a registered filter in ModeValidate, returning the word
// count its inverse metadata will occupy. Validate never mutates buf.
func (r *Registry) Validate(meta *FilterMeta) (int, error) {
	fn := r.Address(int(meta.ID))
	if fn == nil {
		return 0, packerr.ErrUnknownFilter
	}
	_, n, err := fn(ModeValidate, nil, meta, nil, nil)
	return n, err
}

// Chain is an ordered, null-terminated (in spirit — a Go slice) list of
// forward-mode filter requests to run in sequence.
type Chain []*FilterMeta

// RunForward runs every filter in chain over a copy of data (data itself is
// not modified), validating each first. It appends to out the resulting
// inverse-metadata chain, then the dimensions+terminator sentinel pair, then
// the transformed data.
func (r *Registry) RunForward(data []uint32, dims []int, chain Chain, out *wordstream.Stream) error {
	buf := make([]uint32, len(data))
	copy(buf, data)

	for _, meta := range chain {
		fn := r.Address(int(meta.ID))
		if fn == nil {
			return packerr.ErrUnknownFilter
		}
		if _, _, err := fn(ModeValidate, nil, meta, nil, nil); err != nil {
			return err
		}
		if _, _, err := fn(ModeFwdSize, dims, meta, nil, nil); err != nil {
			return err
		}
		inv, n, err := fn(ModeForward, dims, meta, buf, out)
		if err != nil {
			return err
		}
		buf = buf[:n]
		if err := out.Insert(inv.pack()); err != nil {
			return err
		}
	}

	dimsMeta, err := packDims(dims)
	if err != nil {
		return err
	}
	if err := out.Insert(dimsMeta.pack()); err != nil {
		return err
	}
	term := &FilterMeta{ID: TerminatorFilterID}
	if err := out.Insert(term.pack()); err != nil {
		return err
	}
	return out.Insert(buf)
}

// RunReverse reads a metadata chain of length nFilters terminated by the
// dimensions+terminator sentinel pair from in, then runs each filter's
// inverse transform over the trailing payload words.
func (r *Registry) RunReverse(in *wordstream.Stream, nFilters int) ([]uint32, []int, error) {
	invChain := make([]*FilterMeta, 0, nFilters)
	for i := 0; i < nFilters; i++ {
		meta, err := readMeta(in)
		if err != nil {
			return nil, nil, err
		}
		invChain = append(invChain, meta)
	}
	dimsMeta, err := readMeta(in)
	if err != nil {
		return nil, nil, err
	}
	if dimsMeta.ID != DimensionsFilterID {
		return nil, nil, packerr.ErrInvariant
	}
	dims := unpackDims(dimsMeta)

	termMeta, err := readMeta(in)
	if err != nil {
		return nil, nil, err
	}
	if termMeta.ID != TerminatorFilterID {
		return nil, nil, packerr.ErrInvariant
	}

	buf, err := in.Read(in.Available())
	if err != nil {
		return nil, nil, err
	}
	work := make([]uint32, len(buf))
	copy(work, buf)

	for i := len(invChain) - 1; i >= 0; i-- {
		meta := invChain[i]
		fn := r.Address(int(meta.ID))
		if fn == nil {
			return nil, nil, packerr.ErrUnknownFilter
		}
		// deflate's inverse (decompression) can expand the buffer past its
		// compressed word count; its own forward pass recorded that word
		// count as payload[0], so grow work to fit before reversing it.
		if meta.ID == DeflateFilterID && len(meta.Payload) >= 1 {
			origWords := int(meta.Payload[0])
			if origWords > len(work) {
				grown := make([]uint32, origWords)
				copy(grown, work)
				work = grown
			}
		}
		_, n, err := fn(ModeReverse, dims, meta, work, nil)
		if err != nil {
			return nil, nil, err
		}
		work = work[:n]
	}
	return work, dims, nil
}

func readMeta(in *wordstream.Stream) (*FilterMeta, error) {
	hdrWords, err := in.Read(1)
	if err != nil {
		return nil, err
	}
	size := int(hdrWords[0] >> 16)
	if size < 1 {
		return nil, packerr.ErrInvariant
	}
	full := make([]uint32, size)
	full[0] = hdrWords[0]
	if size > 1 {
		rest, err := in.Read(size - 1)
		if err != nil {
			return nil, err
		}
		copy(full[1:], rest)
	}
	return unpackMeta(full)
}

// packDims encodes array dimensions into a dimensions (id 0) metadata
// record: a dimension count followed by each extent as a full 32-bit
// payload word. This spends one word per dimension rather than a
// variable-width packing keyed to the largest extent, trading a few words
// on the dimensions record for a simpler, still self-describing layout.
func packDims(dims []int) (*FilterMeta, error) {
	if len(dims) < 1 || len(dims) > 5 {
		return nil, packerr.ErrInvalidInput
	}
	payload := make([]uint32, len(dims)+1)
	payload[0] = uint32(len(dims))
	for i, d := range dims {
		if d < 0 {
			return nil, packerr.ErrInvalidInput
		}
		payload[i+1] = uint32(d)
	}
	return &FilterMeta{ID: DimensionsFilterID, Payload: payload}, nil
}

func unpackDims(meta *FilterMeta) []int {
	if len(meta.Payload) < 1 {
		return nil
	}
	n := int(meta.Payload[0])
	if n < 0 || n > len(meta.Payload)-1 {
		return nil
	}
	dims := make([]int, n)
	for i := range dims {
		dims[i] = int(meta.Payload[i+1])
	}
	return dims
}

// dimensionsFilter is registered at id 0 for address/name-lookup parity
// with the rest of the table; RunForward/RunReverse build and consume the
// id-0 metadata record directly via packDims/unpackDims rather than calling
// this function.
func dimensionsFilter(mode Mode, dims []int, meta *FilterMeta, buf []uint32, out *wordstream.Stream) (*FilterMeta, int, error) {
	switch mode {
	case ModeValidate:
		return nil, len(meta.Payload) + 1, nil
	case ModeFwdSize:
		return nil, len(dims) + 1, nil
	default:
		return nil, 0, packerr.ErrInvariant
	}
}

// terminatorFilter is registered at id 255, the pipeline's sentinel
// terminator. Like dimensionsFilter it exists for table completeness;
// RunForward/RunReverse append/consume the terminator record directly.
func terminatorFilter(mode Mode, dims []int, meta *FilterMeta, buf []uint32, out *wordstream.Stream) (*FilterMeta, int, error) {
	switch mode {
	case ModeValidate:
		return nil, 0, nil
	case ModeFwdSize:
		return nil, 0, nil
	default:
		return nil, 0, packerr.ErrInvariant
	}
}
