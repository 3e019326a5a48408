// Command packcheck round-trips a synthetic array through a configured
// quantizer and pipeline and reports whether the result matches, within
// tolerance. It is a manual verification tool, not a contract surface,
// grounded on cmd/exrcheck's flag-driven open/verify/report shape.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/rpnenv/pack/arrayinfo"
	"github.com/rpnenv/pack/pipeline"
	"github.com/rpnenv/pack/plog"
	"github.com/rpnenv/pack/quantize"
	"github.com/rpnenv/pack/wordstream"
)

func main() {
	n := flag.Int("n", 256, "number of synthetic float32 values to generate")
	nbits := flag.Int("nbits", 12, "quantizer bit width")
	verbosity := flag.Int("v", 0, "debug verbosity")
	useDeflate := flag.Bool("deflate", false, "run the output through the deflate pipeline filter")
	flag.Parse()

	plog.SetVerbosity(*verbosity)

	if err := run(*n, *nbits, *useDeflate); err != nil {
		fmt.Fprintf(os.Stderr, "packcheck: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("packcheck: OK")
}

func run(n, nbits int, useDeflate bool) error {
	data := make([]float32, n)
	rnd := rand.New(rand.NewSource(1))
	for i := range data {
		data[i] = float32(rnd.NormFloat64() * 100)
	}

	extrema, err := arrayinfo.AnalyzeFloat32(data)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	fmin := math.Float32frombits(arrayinfo.FakeSignedToBits(extrema.Mins))
	fmax := math.Float32frombits(arrayinfo.FakeSignedToBits(extrema.Maxs))
	plog.Debugf(1, "extrema: min=%v max=%v", fmin, fmax)

	desc, err := quantize.PrepLinear0(extrema, quantize.Options{NBits: nbits})
	if err != nil {
		return fmt.Errorf("prep quantizer: %w", err)
	}

	codes, err := desc.Quantize(data)
	if err != nil {
		return fmt.Errorf("quantize: %w", err)
	}

	reg := pipeline.NewRegistry()
	var chain pipeline.Chain
	if useDeflate {
		chain = pipeline.Chain{{ID: pipeline.DeflateFilterID}}
	}

	out := wordstream.New(len(codes) + 16)
	if err := reg.RunForward(codes, []int{n}, chain, out); err != nil {
		return fmt.Errorf("pipeline forward: %w", err)
	}

	in := wordstream.New(out.Len())
	if err := in.Insert(out.Words()); err != nil {
		return fmt.Errorf("restage: %w", err)
	}
	in.RewindRead()

	restoredCodes, dims, err := reg.RunReverse(in, len(chain))
	if err != nil {
		return fmt.Errorf("pipeline reverse: %w", err)
	}
	if len(dims) != 1 || dims[0] != n {
		return fmt.Errorf("dimension mismatch: got %v, want [%d]", dims, n)
	}

	restored, err := desc.Unquantize(restoredCodes)
	if err != nil {
		return fmt.Errorf("unquantize: %w", err)
	}

	tol := 2.0 / math.Exp2(float64(nbits)) * float64(fmax-fmin)
	for i := range data {
		diff := float64(restored[i]) - float64(data[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > tol {
			return fmt.Errorf("elem %d: got %v, want %v (diff %v exceeds tolerance %v)",
				i, restored[i], data[i], diff, tol)
		}
	}
	return nil
}
