package pipeline

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/rpnenv/pack/packerr"
	"github.com/rpnenv/pack/wordstream"
)

// deflateFilter is filter id 200, an optional best-effort entropy pass
// wired to github.com/klauspost/compress/zlib. It treats its input words as
// an opaque byte blob: a caller opts into it as the last stage of a chain,
// after quantization and tiling have already shaped the data.
func deflateFilter(mode Mode, dims []int, meta *FilterMeta, buf []uint32, out *wordstream.Stream) (*FilterMeta, int, error) {
	switch mode {
	case ModeValidate:
		return nil, 3, nil // inverse metadata: prolog + [origWordCount, compressedByteLen]
	case ModeFwdSize:
		n := 1
		for _, d := range dims {
			n *= d
		}
		return nil, n + 16, nil // worst case: no shrinkage plus zlib framing
	case ModeForward:
		return deflateForward(buf)
	case ModeReverse:
		return deflateReverse(meta, buf)
	default:
		return nil, 0, packerr.ErrInvariant
	}
}

func deflateForward(buf []uint32) (*FilterMeta, int, error) {
	raw := make([]byte, len(buf)*4)
	for i, w := range buf {
		binary.BigEndian.PutUint32(raw[i*4:], w)
	}

	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, 0, err
	}
	if err := w.Close(); err != nil {
		return nil, 0, err
	}

	compressed := b.Bytes()
	nWords := (len(compressed) + 3) / 4
	if nWords > len(buf) {
		// compression expanded the data (small or incompressible input);
		// there is no room to write the result back in place.
		return nil, 0, packerr.ErrCapacity
	}
	padded := make([]byte, nWords*4)
	copy(padded, compressed)
	words := make([]uint32, nWords)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(padded[i*4:])
	}
	copy(buf[:nWords], words)

	inv := &FilterMeta{
		ID:      DeflateFilterID,
		Payload: []uint32{uint32(len(buf)), uint32(len(compressed))},
	}
	return inv, nWords, nil
}

func deflateReverse(meta *FilterMeta, buf []uint32) (*FilterMeta, int, error) {
	if len(meta.Payload) < 2 {
		return nil, 0, packerr.ErrInvalidInput
	}
	origWords := int(meta.Payload[0])
	compressedLen := int(meta.Payload[1])

	raw := make([]byte, len(buf)*4)
	for i, w := range buf {
		binary.BigEndian.PutUint32(raw[i*4:], w)
	}
	if compressedLen > len(raw) {
		return nil, 0, packerr.ErrInvalidInput
	}
	raw = raw[:compressedLen]

	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	decompressed := make([]byte, origWords*4)
	if _, err := io.ReadFull(r, decompressed); err != nil {
		return nil, 0, err
	}
	for i := 0; i < origWords; i++ {
		buf[i] = binary.BigEndian.Uint32(decompressed[i*4:])
	}
	return nil, origWords, nil
}
