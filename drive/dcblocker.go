package drive

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const (
	// DCBlockerHz is the highpass corner of the DC blocker.
	DCBlockerHz = 30.0
	dcBlockerQ  = math.Sqrt2 / 2
)

// DCBlocker removes the offset introduced by the bias stage.
type DCBlocker struct {
	section biquad.Section
}

// NewDCBlocker returns a blocker designed for sampleRate.
func NewDCBlocker(sampleRate float64) *DCBlocker {
	d := &DCBlocker{}
	d.SetSampleRate(sampleRate)
	return d
}

// SetSampleRate redesigns the highpass and clears its history.
func (d *DCBlocker) SetSampleRate(sampleRate float64) {
	d.section.Coefficients = design.Highpass(DCBlockerHz, dcBlockerQ, sampleRate)
	d.section.Reset()
}

// ProcessSample filters one sample.
func (d *DCBlocker) ProcessSample(x float64) float64 {
	return d.section.ProcessSample(x)
}

// Reset clears the filter history.
func (d *DCBlocker) Reset() { d.section.Reset() }
