// Package cabinet convolves the drive output with a loudspeaker cabinet
// impulse response.
package cabinet

import (
	"errors"
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/cwbudde/algo-drive/internal/wavio"
)

// DefaultPartSize is the block length of the streaming convolution.
const DefaultPartSize = 128

// ErrEmptyIR is returned for an impulse response without samples.
var ErrEmptyIR = errors.New("cabinet: empty impulse response")

// Convolver applies a stereo impulse response with a wet/dry mix. Blocks
// of any length may be passed, but the convolution is only continuous
// across calls whose length is a multiple of the part size.
type Convolver struct {
	sampleRate int
	partSize   int
	irLen      int
	mix        float64

	left  *dspconv.StreamingOverlapAdd
	right *dspconv.StreamingOverlapAdd

	inL, inR   []float64
	outL, outR []float64
}

// New creates a convolver with a unit impulse, which passes audio through.
func New(sampleRate int) *Convolver {
	c := &Convolver{
		sampleRate: sampleRate,
		partSize:   DefaultPartSize,
		mix:        1,
	}
	_ = c.SetIR([]float64{1}, nil)
	return c
}

// SampleRate returns the rate impulse responses are resampled to.
func (c *Convolver) SampleRate() int { return c.sampleRate }

// PartSize returns the streaming block length.
func (c *Convolver) PartSize() int { return c.partSize }

// IRLen returns the length of the longer channel of the current response.
func (c *Convolver) IRLen() int { return c.irLen }

// Mix returns the wet proportion.
func (c *Convolver) Mix() float64 { return c.mix }

// SetMix sets the wet proportion, clamped to [0,1].
func (c *Convolver) SetMix(mix float64) {
	c.mix = min(max(mix, 0), 1)
}

// SetIR installs left/right responses. A nil right channel reuses left.
// On error the previous response stays active.
func (c *Convolver) SetIR(left, right []float64) error {
	if len(left) == 0 {
		return ErrEmptyIR
	}
	if len(right) == 0 {
		right = left
	}
	l, err := dspconv.NewStreamingOverlapAdd(left, c.partSize)
	if err != nil {
		return fmt.Errorf("cabinet: left: %w", err)
	}
	r, err := dspconv.NewStreamingOverlapAdd(right, c.partSize)
	if err != nil {
		return fmt.Errorf("cabinet: right: %w", err)
	}
	c.left, c.right = l, r
	c.irLen = max(len(left), len(right))

	c.inL = make([]float64, c.partSize)
	c.inR = make([]float64, c.partSize)
	c.outL = make([]float64, c.partSize)
	c.outR = make([]float64, c.partSize)
	return nil
}

// LoadWAV installs a mono or stereo response from a WAV file, resampled to
// the convolver rate.
func (c *Convolver) LoadWAV(path string) error {
	s, err := wavio.ReadStereo(path)
	if err != nil {
		return err
	}
	if s.Frames() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyIR, path)
	}
	if err := s.Resample(c.sampleRate); err != nil {
		return err
	}
	return c.SetIR(s.Left, s.Right)
}

// Process convolves left and right in place. With a nil right channel
// only the left chain runs.
func (c *Convolver) Process(left, right []float64) {
	n := len(left)
	if right != nil {
		n = min(n, len(right))
	}
	for pos := 0; pos < n; pos += c.partSize {
		end := min(pos+c.partSize, n)
		c.block(c.left, c.inL, c.outL, left[pos:end])
		if right != nil {
			c.block(c.right, c.inR, c.outR, right[pos:end])
		}
	}
}

func (c *Convolver) block(ola *dspconv.StreamingOverlapAdd, in, out, x []float64) {
	clear(in)
	copy(in, x)
	if err := ola.ProcessBlockTo(out, in); err != nil {
		return
	}
	dry := 1 - c.mix
	for i := range x {
		x[i] = dry*x[i] + c.mix*out[i]
	}
}

// Reset clears the convolution tails.
func (c *Convolver) Reset() {
	if c.left != nil {
		c.left.Reset()
	}
	if c.right != nil {
		c.right.Reset()
	}
}
