package drive

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

var (
	// ErrInvalidSampleRate is returned for a sample rate that is not a
	// positive finite number.
	ErrInvalidSampleRate = errors.New("drive: invalid sample rate")
	// ErrInvalidRatioIndex is returned for an oversampling index outside
	// 0..NumOversamplingIndices-1.
	ErrInvalidRatioIndex = errors.New("drive: invalid oversampling index")
)

const noPendingIndex = -1

// Processor is the stereo drive module: tone shelf, drive and bias,
// oversampled diode clipper and DC blocker on each channel.
//
// ProcessFrame, ProcessBlock, ProcessInterleaved, OnSampleRateChange,
// SetOversamplingIndex, Reset and DataFromJSON belong to the audio goroutine.
// Params, ModInputs and RequestOversamplingIndex may be used from any
// goroutine.
type Processor struct {
	params *Params
	mod    ModInputs

	sampleRate float64
	osIdx      int
	pending    atomic.Int64

	divider controlDivider
	coeffs  Coefficients
	ch      [2]*channel
}

var _ Module = (*Processor)(nil)

// New creates a processor at sampleRate. A nil params uses defaults.
func New(sampleRate float64, params *Params) (*Processor, error) {
	if err := validateSampleRate(sampleRate); err != nil {
		return nil, err
	}
	if params == nil {
		params = NewParams()
	}
	p := &Processor{
		params:     params,
		sampleRate: sampleRate,
		osIdx:      DefaultOversamplingIndex,
		divider:    controlDivider{division: ControlDivision},
	}
	p.pending.Store(noPendingIndex)
	for i := range p.ch {
		p.ch[i] = newChannel(sampleRate, p.osIdx)
	}
	p.cook()
	return p, nil
}

func validateSampleRate(fs float64) error {
	if !(fs > 0) || math.IsInf(fs, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, fs)
	}
	return nil
}

// Params returns the parameter set.
func (p *Processor) Params() *Params { return p.params }

// ModInputs returns the modulation voltages.
func (p *Processor) ModInputs() *ModInputs { return &p.mod }

// SampleRate returns the base sample rate.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// OversamplingIndex returns the active ratio index.
func (p *Processor) OversamplingIndex() int { return p.osIdx }

// OversamplingRatio returns the active ratio.
func (p *Processor) OversamplingRatio() int { return oversamplingRatios[p.osIdx] }

// Coefficients returns the values computed at the last control tick.
func (p *Processor) Coefficients() Coefficients { return p.coeffs }

func (p *Processor) cook() {
	p.coeffs = Cook(p.params.Values(), p.mod.Values())
	for _, ch := range p.ch {
		ch.shelf.SetCoefficients(p.coeffs.LowGain, p.coeffs.HighGain, ShelfCornerHz, p.sampleRate)
	}
}

// OnSampleRateChange rebuilds both channels for fs. An invalid fs returns
// ErrInvalidSampleRate and leaves the processor untouched.
func (p *Processor) OnSampleRateChange(fs float64) error {
	if err := validateSampleRate(fs); err != nil {
		return err
	}
	p.sampleRate = fs
	p.rebuild()
	return nil
}

func (p *Processor) rebuild() {
	for _, ch := range p.ch {
		ch.setRatioIndex(p.osIdx, p.sampleRate)
	}
	p.divider.reset()
	p.cook()
}

// SetOversamplingIndex switches the ratio and rebuilds both channels.
func (p *Processor) SetOversamplingIndex(idx int) error {
	if err := ValidateOversamplingIndex(idx); err != nil {
		return err
	}
	p.osIdx = idx
	p.rebuild()
	return nil
}

// RequestOversamplingIndex queues a ratio change that the audio goroutine
// applies before its next frame.
func (p *Processor) RequestOversamplingIndex(idx int) error {
	if err := ValidateOversamplingIndex(idx); err != nil {
		return err
	}
	p.pending.Store(int64(idx))
	return nil
}

func (p *Processor) applyPending() {
	if p.pending.Load() == noPendingIndex {
		return
	}
	idx := int(p.pending.Swap(noPendingIndex))
	if idx == noPendingIndex || idx == p.osIdx {
		return
	}
	p.osIdx = ClampOversamplingIndex(idx)
	p.rebuild()
}

// Reset restores default parameters, zeroes the modulation inputs and
// rebuilds the signal chain. The oversampling index is kept.
func (p *Processor) Reset() {
	p.params.ResetDefaults()
	p.mod.Reset()
	p.rebuild()
}

// ProcessFrame processes one stereo frame. With rightConnected false the
// right output repeats the left output and the right chain is not advanced.
func (p *Processor) ProcessFrame(xL, xR float64, rightConnected bool) (yL, yR float64) {
	p.applyPending()
	if p.divider.tick() {
		p.cook()
	}
	yL = p.ch[0].process(xL, &p.coeffs)
	if !rightConnected {
		return yL, yL
	}
	return yL, p.ch[1].process(xR, &p.coeffs)
}

// ProcessBlock processes the shortest of the given slices. A nil srcR
// processes srcL as a mono input and writes it to both outputs.
func (p *Processor) ProcessBlock(dstL, dstR, srcL, srcR []float64) {
	n := min(len(dstL), len(dstR), len(srcL))
	connected := srcR != nil
	if connected {
		n = min(n, len(srcR))
	}
	for i := 0; i < n; i++ {
		var xR float64
		if connected {
			xR = srcR[i]
		}
		dstL[i], dstR[i] = p.ProcessFrame(srcL[i], xR, connected)
	}
}

// ProcessInterleaved processes buf in place. With one channel the buffer is
// treated as the left input; with two or more the first two channels are
// processed as a stereo pair and the rest are left untouched.
func (p *Processor) ProcessInterleaved(buf []float32, channels int) {
	if channels < 1 {
		return
	}
	frames := len(buf) / channels
	for f := 0; f < frames; f++ {
		i := f * channels
		if channels == 1 {
			y, _ := p.ProcessFrame(float64(buf[i]), 0, false)
			buf[i] = float32(y)
			continue
		}
		yL, yR := p.ProcessFrame(float64(buf[i]), float64(buf[i+1]), true)
		buf[i] = float32(yL)
		buf[i+1] = float32(yR)
	}
}
