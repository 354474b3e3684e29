package drive

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const (
	// DefaultOversamplingIndex selects 2x.
	DefaultOversamplingIndex = 1

	// MaxOversamplingRatio is the largest supported ratio.
	MaxOversamplingRatio = 16

	aaFilterOrder   = 6
	aaCutoffPerBase = 0.45
)

var oversamplingRatios = [...]int{1, 2, 4, 8, 16}

// NumOversamplingIndices is the number of selectable ratios.
const NumOversamplingIndices = len(oversamplingRatios)

// OversamplingRatio maps an index to its ratio. Out of range indices clamp.
func OversamplingRatio(idx int) int {
	return oversamplingRatios[ClampOversamplingIndex(idx)]
}

// ClampOversamplingIndex limits idx to the valid index range.
func ClampOversamplingIndex(idx int) int {
	if idx < 0 {
		return 0
	}
	if idx >= NumOversamplingIndices {
		return NumOversamplingIndices - 1
	}
	return idx
}

// ValidateOversamplingIndex reports ErrInvalidRatioIndex for out of range idx.
func ValidateOversamplingIndex(idx int) error {
	if idx < 0 || idx >= NumOversamplingIndices {
		return fmt.Errorf("oversampling index %d: %w", idx, ErrInvalidRatioIndex)
	}
	return nil
}

// OversamplingLabels returns menu labels for every index ("1x".."16x").
func OversamplingLabels() []string {
	out := make([]string, NumOversamplingIndices)
	for i, r := range oversamplingRatios {
		out[i] = fmt.Sprintf("%dx", r)
	}
	return out
}

// Oversampler runs one sample at a time through an integer-ratio
// up/down conversion. The sample buffer is preallocated at the maximum
// ratio; only the filter cascades are rebuilt on Reset.
type Oversampler struct {
	idx      int
	ratio    int
	baseRate float64

	store [MaxOversamplingRatio]float64
	buf   []float64

	up   *biquad.Chain
	down *biquad.Chain
}

// NewOversampler returns an oversampler at DefaultOversamplingIndex.
func NewOversampler(baseRate float64) *Oversampler {
	o := &Oversampler{idx: DefaultOversamplingIndex}
	o.Reset(baseRate)
	return o
}

// SetRatioIndex selects a new ratio and resets at the last known base rate.
// Before the first Reset with a positive rate only the buffer is resized.
func (o *Oversampler) SetRatioIndex(idx int) {
	o.idx = ClampOversamplingIndex(idx)
	o.Reset(o.baseRate)
}

// RatioIndex returns the selected index.
func (o *Oversampler) RatioIndex() int { return o.idx }

// Ratio returns the selected ratio.
func (o *Oversampler) Ratio() int { return o.ratio }

// BaseRate returns the rate passed to the last Reset.
func (o *Oversampler) BaseRate() float64 { return o.baseRate }

// Reset designs the filters for baseRate, clears their history and sizes
// the buffer to the ratio.
func (o *Oversampler) Reset(baseRate float64) {
	o.baseRate = baseRate
	o.ratio = oversamplingRatios[o.idx]
	clear(o.store[:])
	o.buf = o.store[:o.ratio]

	if o.ratio == 1 || baseRate <= 0 {
		o.up, o.down = nil, nil
		return
	}

	osRate := baseRate * float64(o.ratio)
	coeffs := design.ButterworthLP(aaCutoffPerBase*baseRate, aaFilterOrder, osRate)
	o.up = biquad.NewChain(coeffs)
	o.down = biquad.NewChain(coeffs)
}

// Upsample writes x into the buffer at the oversampled rate and returns the
// buffer for in-place processing. Each call must be followed by Downsample.
func (o *Oversampler) Upsample(x float64) []float64 {
	if o.up == nil {
		clear(o.buf)
		o.buf[0] = x
		return o.buf
	}
	r := float64(o.ratio)
	o.buf[0] = o.up.ProcessSample(x * r)
	for k := 1; k < o.ratio; k++ {
		o.buf[k] = o.up.ProcessSample(0)
	}
	return o.buf
}

// Downsample filters the buffer and returns one sample at the base rate.
func (o *Oversampler) Downsample() float64 {
	if o.down == nil {
		return o.buf[0]
	}
	var y float64
	for k := 0; k < o.ratio; k++ {
		y = o.down.ProcessSample(o.buf[k])
	}
	return y
}

// Buffer returns the oversampled buffer; its length equals Ratio.
func (o *Oversampler) Buffer() []float64 { return o.buf }
