// Package quantize implements four quantization models: constant-quantum
// linear (Linear0), power-of-two-quantum linear (Linear1),
// normalized-mantissa linear (Linear2), and logarithmic (FakeLog). Each
// model's Prep converts an arrayinfo.Extrema plus a caller preference (a
// target bit width or a maximum tolerated absolute error) into a Descriptor;
// Quantize packs a float32 array into per-element codes; Unquantize restores
// the array from codes and the descriptor that produced them.
package quantize

import (
	"math"
	"math/bits"

	"github.com/rpnenv/pack/arrayinfo"
	"github.com/rpnenv/pack/packerr"
)

// Kind identifies which of the four models a packed Descriptor encodes.
type Kind uint8

const (
	KindLinear0 Kind = iota
	KindLinear1
	KindLinear2
	KindFakeLog
)

// Options is the caller's quantization preference: set NBits to request a
// fixed code width, or leave it zero and set MaxError to let Prep derive the
// narrowest width that keeps every restored value within MaxError of the
// original.
type Options struct {
	NBits    int
	MaxError float64
}

// Descriptor is a prepared quantizer: it knows how to turn a float32 array
// into integer codes and back. Each of the four models below implements it.
type Descriptor interface {
	Kind() Kind
	NBits() int
	Quantize(values []float32) ([]uint32, error)
	Unquantize(codes []uint32) ([]float32, error)
	Pack() uint64
}

// Unpack reconstructs a Descriptor of the given kind from a packed uint64
// produced by that descriptor's Pack method.
func Unpack(kind Kind, word uint64) (Descriptor, error) {
	switch kind {
	case KindLinear0:
		return unpackLinear0(word), nil
	case KindLinear1:
		return unpackLinear1(word), nil
	case KindLinear2:
		return unpackLinear2(word), nil
	case KindFakeLog:
		return unpackFakeLog(word), nil
	default:
		return nil, packerr.ErrInvalidInput
	}
}

func magnitudes(e arrayinfo.Extrema) (minAbs, maxAbs float64) {
	return float64(math.Float32frombits(e.Mina)), float64(math.Float32frombits(e.Maxa))
}

func clipCode(v int64, nbits int) uint32 {
	if v < 0 {
		return 0
	}
	max := int64(1)<<uint(nbits) - 1
	if v > max {
		return uint32(max)
	}
	return uint32(v)
}

func signOf(v float32) bool { return math.Signbit(float64(v)) }

func log2ceil(x float64) int {
	if x <= 1 {
		return 0
	}
	return bits.Len64(uint64(math.Ceil(x - 1)))
}

// --- Linear type 0: constant quantum, offset from min -----------------

// Linear0 is the constant-quantum, offset-from-min quantizer: best for
// same-sign values with modest dynamic range.
type Linear0 struct {
	nbits    int
	quant    float64
	offset   int64
	mixed    bool
	constant bool
	constVal float32
}

// PrepLinear0 builds a Linear0 descriptor from extrema and a caller
// preference.
func PrepLinear0(e arrayinfo.Extrema, opt Options) (*Linear0, error) {
	minAbs, maxAbs := magnitudes(e)
	mixed := !e.AllP && !e.AllM

	if maxAbs == minAbs && !mixed {
		sign := e.AllM
		v := float32(minAbs)
		if sign {
			v = -v
		}
		return &Linear0{constant: true, constVal: v}, nil
	}

	if opt.NBits <= 0 && opt.MaxError <= 0 {
		return nil, packerr.ErrInvalidInput
	}

	rangeVal := maxAbs - minAbs
	var nbits int
	var quant float64
	switch {
	case opt.NBits > 0:
		nbits = opt.NBits
		denom := float64(int64(1)<<uint(nbits) - 1)
		if denom <= 0 {
			denom = 1
		}
		quant = rangeVal / denom
	default:
		quant = 2 * opt.MaxError
		nbits = log2ceil(rangeVal/quant) + 1
	}
	if mixed {
		nbits++
	}
	if nbits < 1 {
		nbits = 1
	}
	if nbits > 30 {
		nbits = 30
	}
	if quant <= 0 {
		quant = 1
	}
	offset := int64(math.Floor(minAbs/quant + 0.5))

	return &Linear0{nbits: nbits, quant: quant, offset: offset, mixed: mixed}, nil
}

func (l *Linear0) Kind() Kind { return KindLinear0 }
func (l *Linear0) NBits() int { return l.nbits }

func (l *Linear0) Quantize(values []float32) ([]uint32, error) {
	out := make([]uint32, len(values))
	if l.constant {
		return out, nil
	}
	for i, v := range values {
		mag := math.Abs(float64(v))
		code := int64(math.Floor(mag/l.quant+0.5)) - l.offset
		u := clipCode(code, l.nbits)
		if l.mixed {
			u <<= 1
			if signOf(v) {
				u |= 1
			}
		}
		out[i] = u
	}
	return out, nil
}

func (l *Linear0) Unquantize(codes []uint32) ([]float32, error) {
	out := make([]float32, len(codes))
	if l.constant {
		for i := range out {
			out[i] = l.constVal
		}
		return out, nil
	}
	for i, c := range codes {
		neg := false
		u := c
		if l.mixed {
			neg = u&1 == 1
			u >>= 1
		}
		mag := (float64(int64(u)+l.offset)) * l.quant
		v := float32(mag)
		if neg {
			v = -v
		}
		out[i] = v
	}
	return out, nil
}

// Pack encodes the descriptor into a single uint64: bit 63 flags a constant
// field (with its value stored directly in the low 32 bits), else bit 62
// flags mixed sign, bits 56..61 hold nbits, bits 32..55 hold offset, and the
// low 32 bits hold the quantum as an IEEE-32 bit pattern.
func (l *Linear0) Pack() uint64 {
	if l.constant {
		return 1<<63 | uint64(math.Float32bits(l.constVal))
	}
	var w uint64
	if l.mixed {
		w |= 1 << 62
	}
	w |= uint64(l.nbits&0x3f) << 56
	w |= uint64(uint32(l.offset)&0xffffff) << 32
	w |= uint64(math.Float32bits(float32(l.quant)))
	return w
}

func unpackLinear0(w uint64) *Linear0 {
	if w&(1<<63) != 0 {
		return &Linear0{constant: true, constVal: math.Float32frombits(uint32(w))}
	}
	l := &Linear0{}
	l.mixed = w&(1<<62) != 0
	l.nbits = int((w >> 56) & 0x3f)
	raw := uint32(w>>32) & 0xffffff
	l.offset = int64(int32(raw<<8) >> 8)
	l.quant = float64(math.Float32frombits(uint32(w)))
	return l
}

// --- Linear type 1: quantum forced to a power of two -------------------

// Linear1 is the power-of-two-quantum linear quantizer: handles mixed signs
// and a medium exponent spread.
type Linear1 struct {
	nbits    int
	quantExp int // quantum = 2^quantExp
	offset   float64
	mixed    bool
	constant bool
	constVal float32
}

// PrepLinear1 builds a Linear1 descriptor from extrema and a caller
// preference.
func PrepLinear1(e arrayinfo.Extrema, opt Options) (*Linear1, error) {
	minAbs, maxAbs := magnitudes(e)
	mixed := !e.AllP && !e.AllM

	if maxAbs == minAbs && !mixed {
		sign := e.AllM
		v := float32(minAbs)
		if sign {
			v = -v
		}
		return &Linear1{constant: true, constVal: v}, nil
	}

	if opt.NBits <= 0 && opt.MaxError <= 0 {
		return nil, packerr.ErrInvalidInput
	}

	rangeVal := maxAbs - minAbs
	var nbits int
	var quant float64
	switch {
	case opt.NBits > 0:
		nbits = opt.NBits
		denom := float64(int64(1)<<uint(nbits) - 1)
		if denom <= 0 {
			denom = 1
		}
		quant = rangeVal / denom
	default:
		quant = 2 * opt.MaxError
		nbits = log2ceil(rangeVal/quant) + 1
	}
	if mixed {
		nbits++
	}
	if nbits < 1 {
		nbits = 1
	}
	if nbits > 30 {
		nbits = 30
	}
	quantExp := int(math.Ceil(math.Log2(quant)))
	quantum := math.Exp2(float64(quantExp))

	exponentRange := 0
	if minAbs > 0 {
		exponentRange = int(math.Ceil(math.Log2(maxAbs))) - int(math.Floor(math.Log2(minAbs)))
	}
	var offset float64
	if exponentRange > nbits {
		offset = 0
	} else {
		offset = math.Floor(minAbs/quantum) * quantum
	}

	return &Linear1{nbits: nbits, quantExp: quantExp, offset: offset, mixed: mixed}, nil
}

func (l *Linear1) Kind() Kind { return KindLinear1 }
func (l *Linear1) NBits() int { return l.nbits }

func (l *Linear1) quantum() float64 { return math.Exp2(float64(l.quantExp)) }

func (l *Linear1) Quantize(values []float32) ([]uint32, error) {
	out := make([]uint32, len(values))
	if l.constant {
		return out, nil
	}
	scale := 1 / l.quantum()
	for i, v := range values {
		mag := math.Abs(float64(v))
		code := int64(math.Floor((mag-l.offset)*scale + 0.5))
		u := clipCode(code, l.nbits)
		if l.mixed {
			u <<= 1
			if signOf(v) {
				u |= 1
			}
		}
		out[i] = u
	}
	return out, nil
}

func (l *Linear1) Unquantize(codes []uint32) ([]float32, error) {
	out := make([]float32, len(codes))
	if l.constant {
		for i := range out {
			out[i] = l.constVal
		}
		return out, nil
	}
	quantum := l.quantum()
	for i, c := range codes {
		neg := false
		u := c
		if l.mixed {
			neg = u&1 == 1
			u >>= 1
		}
		mag := float64(u)*quantum + l.offset
		v := float32(mag)
		if neg {
			v = -v
		}
		out[i] = v
	}
	return out, nil
}

// Pack encodes the descriptor: bit 63 flags constant (value in low 32
// bits), else bit 62 flags mixed sign, bits 56..61 hold nbits, bits 40..55
// hold quantExp biased by 128, and the low 32 bits hold offset as an IEEE-32
// bit pattern.
func (l *Linear1) Pack() uint64 {
	if l.constant {
		return 1<<63 | uint64(math.Float32bits(l.constVal))
	}
	var w uint64
	if l.mixed {
		w |= 1 << 62
	}
	w |= uint64(l.nbits&0x3f) << 56
	w |= uint64(uint16(l.quantExp+128)) << 40
	w |= uint64(math.Float32bits(float32(l.offset)))
	return w
}

func unpackLinear1(w uint64) *Linear1 {
	if w&(1<<63) != 0 {
		return &Linear1{constant: true, constVal: math.Float32frombits(uint32(w))}
	}
	l := &Linear1{}
	l.mixed = w&(1<<62) != 0
	l.nbits = int((w >> 56) & 0x3f)
	l.quantExp = int(uint16((w>>40)&0xffff)) - 128
	l.offset = float64(math.Float32frombits(uint32(w)))
	return l
}

// --- Linear type 2: normalized mantissa ---------------------------------

const maxLinear2Points = 16385

// Linear2 is the normalized-mantissa quantizer, for tight dynamic range
// where every value shares the same exponent neighbourhood.
type Linear2 struct {
	nbits    int
	bigExp   int
	minFixed int64
	shift2   int
	mixed    bool
	npts     int
	constant bool
	constVal float32
}

func fixedPointAt(v float64, bigExp int) int64 {
	if v == 0 {
		return 0
	}
	return int64(math.Round(v * math.Exp2(23-float64(bigExp-127))))
}

// PrepLinear2 builds a Linear2 descriptor from extrema, a caller preference,
// and the element count npts (the model packs npts into 14 bits, so npts
// must not exceed 16385).
func PrepLinear2(e arrayinfo.Extrema, opt Options, npts int) (*Linear2, error) {
	if npts > maxLinear2Points {
		return nil, packerr.ErrInvalidInput
	}
	minAbs, maxAbs := magnitudes(e)
	mixed := !e.AllP && !e.AllM

	if maxAbs == minAbs && !mixed {
		sign := e.AllM
		v := float32(minAbs)
		if sign {
			v = -v
		}
		return &Linear2{constant: true, constVal: v, npts: npts}, nil
	}

	if opt.NBits <= 0 && opt.MaxError <= 0 {
		return nil, packerr.ErrInvalidInput
	}

	bigExp := 0
	if maxAbs > 0 {
		bigExp = int(math.Floor(math.Log2(maxAbs))) + 127
	}
	minFixed := fixedPointAt(minAbs, bigExp)
	maxFixed := fixedPointAt(maxAbs, bigExp)
	rangeFixed := maxFixed - minFixed

	nbits := opt.NBits
	if nbits <= 0 {
		quant := 2 * opt.MaxError
		quantFixed := int64(math.Max(1, quant*math.Exp2(23-float64(bigExp-127))))
		nbits = log2ceil(float64(rangeFixed)/float64(quantFixed)) + 1
	}
	if mixed {
		nbits++
	}
	if nbits < 1 {
		nbits = 1
	}
	if nbits > 30 {
		nbits = 30
	}

	shift2 := 0
	for rangeFixed>>uint(shift2) > int64(1)<<uint(nbits)-1 {
		shift2++
	}

	return &Linear2{
		nbits:    nbits,
		bigExp:   bigExp,
		minFixed: minFixed,
		shift2:   shift2,
		mixed:    mixed,
		npts:     npts,
	}, nil
}

func (l *Linear2) Kind() Kind { return KindLinear2 }
func (l *Linear2) NBits() int { return l.nbits }

func (l *Linear2) Quantize(values []float32) ([]uint32, error) {
	if len(values) > maxLinear2Points {
		return nil, packerr.ErrInvalidInput
	}
	out := make([]uint32, len(values))
	if l.constant {
		return out, nil
	}
	for i, v := range values {
		fixed := fixedPointAt(math.Abs(float64(v)), l.bigExp)
		code := (fixed - l.minFixed) >> uint(l.shift2)
		u := clipCode(code, l.nbits)
		if l.mixed {
			u <<= 1
			if signOf(v) {
				u |= 1
			}
		}
		out[i] = u
	}
	return out, nil
}

func (l *Linear2) Unquantize(codes []uint32) ([]float32, error) {
	out := make([]float32, len(codes))
	if l.constant {
		for i := range out {
			out[i] = l.constVal
		}
		return out, nil
	}
	for i, c := range codes {
		neg := false
		u := c
		if l.mixed {
			neg = u&1 == 1
			u >>= 1
		}
		fixed := (int64(u) << uint(l.shift2)) + l.minFixed
		mag := float64(fixed) * math.Exp2(float64(l.bigExp-127)-23)
		v := float32(mag)
		if neg {
			v = -v
		}
		out[i] = v
	}
	return out, nil
}

// Pack encodes the descriptor: bit 63 flags constant (value in low 32
// bits), else bit 62 flags mixed sign, bits 56..61 nbits, bits 48..55
// bigExp, bits 44..47 shift2, bits 30..43 npts, and the low 30 bits the
// sign-magnitude-truncated minFixed.
func (l *Linear2) Pack() uint64 {
	if l.constant {
		return 1<<63 | uint64(math.Float32bits(l.constVal))
	}
	var w uint64
	if l.mixed {
		w |= 1 << 62
	}
	w |= uint64(l.nbits&0x3f) << 56
	w |= uint64(l.bigExp&0xff) << 48
	w |= uint64(l.shift2&0xf) << 44
	w |= uint64(l.npts&0x3fff) << 30
	w |= uint64(l.minFixed) & 0x3fffffff
	return w
}

func unpackLinear2(w uint64) *Linear2 {
	if w&(1<<63) != 0 {
		return &Linear2{constant: true, constVal: math.Float32frombits(uint32(w))}
	}
	l := &Linear2{}
	l.mixed = w&(1<<62) != 0
	l.nbits = int((w >> 56) & 0x3f)
	l.bigExp = int((w >> 48) & 0xff)
	l.shift2 = int((w >> 44) & 0xf)
	l.npts = int((w >> 30) & 0x3fff)
	l.minFixed = int64(w & 0x3fffffff)
	return l
}

// --- Fake-log: logarithmic quantization ---------------------------------

// FakeLog quantizes log2(|v|), for values spanning many orders of
// magnitude.
type FakeLog struct {
	nbits    int
	emin     int
	quant    float64
	qzeroNeg bool // when true, a quantized zero restores to exactly 0.0
	mixed    bool
	constant bool
	constVal float32
}

// PrepFakeLog builds a FakeLog descriptor from extrema and a caller
// preference. qzeroNeg selects the restoration behavior for a quantized
// zero: true restores exactly 0.0, false restores the smallest
// representable positive value.
func PrepFakeLog(e arrayinfo.Extrema, opt Options, qzeroNeg bool) (*FakeLog, error) {
	minAbs, maxAbs := magnitudes(e)
	mixed := !e.AllP && !e.AllM

	if maxAbs == minAbs && !mixed {
		sign := e.AllM
		v := float32(minAbs)
		if sign {
			v = -v
		}
		return &FakeLog{constant: true, constVal: v}, nil
	}

	if opt.NBits <= 0 && opt.MaxError <= 0 {
		return nil, packerr.ErrInvalidInput
	}

	eps := minAbs
	if eps <= 0 {
		eps = math.SmallestNonzeroFloat32
	}
	emin := math.Floor(math.Log2(eps))
	domain := math.Log2(maxAbs) - emin

	nbits := opt.NBits
	var quant float64
	if nbits > 0 {
		denom := float64(int64(1)<<uint(nbits) - 2) // code 0 reserved
		if denom <= 0 {
			denom = 1
		}
		quant = domain / denom
	} else {
		quant = opt.MaxError
		nbits = log2ceil(domain/quant) + 2
	}
	if mixed {
		nbits++
	}
	if nbits < 2 {
		nbits = 2
	}
	if nbits > 30 {
		nbits = 30
	}

	return &FakeLog{nbits: nbits, emin: int(emin), quant: quant, qzeroNeg: qzeroNeg, mixed: mixed}, nil
}

func (f *FakeLog) Kind() Kind { return KindFakeLog }
func (f *FakeLog) NBits() int { return f.nbits }

func (f *FakeLog) Quantize(values []float32) ([]uint32, error) {
	out := make([]uint32, len(values))
	if f.constant {
		return out, nil
	}
	for i, v := range values {
		mag := math.Abs(float64(v))
		var code int64
		if mag == 0 {
			code = 0
		} else {
			domain := math.Log2(mag) - float64(f.emin)
			code = int64(math.Floor(domain/f.quant+0.5)) + 1
			if code < 1 {
				code = 1
			}
		}
		u := clipCode(code, f.nbits)
		if f.mixed {
			u <<= 1
			if signOf(v) {
				u |= 1
			}
		}
		out[i] = u
	}
	return out, nil
}

func (f *FakeLog) Unquantize(codes []uint32) ([]float32, error) {
	out := make([]float32, len(codes))
	if f.constant {
		for i := range out {
			out[i] = f.constVal
		}
		return out, nil
	}
	for i, c := range codes {
		neg := false
		u := c
		if f.mixed {
			neg = u&1 == 1
			u >>= 1
		}
		var mag float64
		if u == 0 {
			if f.qzeroNeg {
				mag = 0
			} else {
				mag = float64(math.SmallestNonzeroFloat32)
			}
		} else {
			domain := float64(u-1) * f.quant
			mag = math.Exp2(float64(f.emin) + domain)
		}
		v := float32(mag)
		if neg {
			v = -v
		}
		out[i] = v
	}
	return out, nil
}

// Pack encodes the descriptor: bit 63 flags constant (value in low 32
// bits), else bit 62 flags mixed sign, bit 61 flags qzeroNeg, bits
// 55..60 nbits, bits 40..54 emin biased by 16384, low 32 bits the quantum
// as an IEEE-32 bit pattern.
func (f *FakeLog) Pack() uint64 {
	if f.constant {
		return 1<<63 | uint64(math.Float32bits(f.constVal))
	}
	var w uint64
	if f.mixed {
		w |= 1 << 62
	}
	if f.qzeroNeg {
		w |= 1 << 61
	}
	w |= uint64(f.nbits&0x3f) << 55
	w |= uint64(uint16(f.emin+16384)&0x7fff) << 40
	w |= uint64(math.Float32bits(float32(f.quant)))
	return w
}

func unpackFakeLog(w uint64) *FakeLog {
	if w&(1<<63) != 0 {
		return &FakeLog{constant: true, constVal: math.Float32frombits(uint32(w))}
	}
	f := &FakeLog{}
	f.mixed = w&(1<<62) != 0
	f.qzeroNeg = w&(1<<61) != 0
	f.nbits = int((w >> 55) & 0x3f)
	f.emin = int(uint16((w>>40)&0x7fff)) - 16384
	f.quant = float64(math.Float32frombits(uint32(w)))
	return f
}
