package drive

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// ShelfFilter is a first-order tilt shelf: lowGain below the corner,
// highGain above it.
type ShelfFilter struct {
	section biquad.Section
}

// NewShelfFilter returns a unity-gain shelf.
func NewShelfFilter() *ShelfFilter {
	return &ShelfFilter{section: biquad.Section{Coefficients: biquad.Coefficients{B0: 1}}}
}

// ShelfCoefficients designs the tilt shelf with a bilinear transform
// prewarped at cornerHz. Equal gains yield a pure gain.
func ShelfCoefficients(lowGain, highGain, cornerHz, sampleRate float64) biquad.Coefficients {
	if lowGain == highGain || lowGain <= 0 || highGain <= 0 {
		return biquad.Coefficients{B0: highGain}
	}

	rho := math.Sqrt(highGain / lowGain)
	k := math.Tan(math.Pi * math.Min(cornerHz/sampleRate, 0.49))
	rk := 1 / (rho * k)

	b0 := highGain*rk + lowGain
	b1 := lowGain - highGain*rk
	a0 := rk + 1
	a1 := 1 - rk

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		A1: a1 / a0,
	}
}

// SetCoefficients redesigns the shelf. Filter history is kept so control
// updates do not click.
func (f *ShelfFilter) SetCoefficients(lowGain, highGain, cornerHz, sampleRate float64) {
	f.section.Coefficients = ShelfCoefficients(lowGain, highGain, cornerHz, sampleRate)
}

// Coefficients returns the current design.
func (f *ShelfFilter) Coefficients() biquad.Coefficients { return f.section.Coefficients }

// ProcessSample filters one sample.
func (f *ShelfFilter) ProcessSample(x float64) float64 {
	return f.section.ProcessSample(x)
}

// Reset clears the filter history.
func (f *ShelfFilter) Reset() { f.section.Reset() }
