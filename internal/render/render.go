// Package render runs whole buffers through a drive processor for the
// offline tools.
package render

import (
	"fmt"

	"github.com/cwbudde/algo-drive/cabinet"
	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/internal/modscript"
)

// Options control an offline render.
type Options struct {
	// Mono processes only the left input and copies the result to the right
	// output, as when the right input jack is unplugged.
	Mono bool
	// Script, when set, is evaluated once per control period and drives the
	// modulation inputs.
	Script *modscript.Script
	// Cabinet, when set, is applied to the processor output.
	Cabinet *cabinet.Convolver
}

// Process renders left (and right, if non-nil and not Mono) through proc
// and returns new output buffers. A nil right input implies Mono.
func Process(proc *drive.Processor, left, right []float64, opts Options) (outL, outR []float64, err error) {
	mono := opts.Mono || right == nil
	n := len(left)
	if !mono {
		n = min(n, len(right))
	}
	outL = make([]float64, n)
	outR = make([]float64, n)

	var srcR []float64
	sr := proc.SampleRate()
	for pos := 0; pos < n; pos += drive.ControlDivision {
		end := min(pos+drive.ControlDivision, n)
		if opts.Script != nil {
			if err := opts.Script.Apply(proc.ModInputs(), float64(pos)/sr); err != nil {
				return nil, nil, fmt.Errorf("frame %d: %w", pos, err)
			}
		}
		if !mono {
			srcR = right[pos:end]
		}
		proc.ProcessBlock(outL[pos:end], outR[pos:end], left[pos:end], srcR)
	}

	if opts.Cabinet != nil {
		if mono {
			opts.Cabinet.Process(outL, nil)
			copy(outR, outL)
		} else {
			opts.Cabinet.Process(outL, outR)
		}
	}
	return outL, outR, nil
}
