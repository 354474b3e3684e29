package drive

import dspcore "github.com/cwbudde/algo-dsp/dsp/core"

// channel is the processing chain of one audio channel.
type channel struct {
	shelf   ShelfFilter
	os      *Oversampler
	clipper *ClippingStage
	dc      *DCBlocker
}

func newChannel(sampleRate float64, osIdx int) *channel {
	ch := &channel{
		shelf: ShelfFilter{},
		os:    &Oversampler{idx: ClampOversamplingIndex(osIdx)},
		dc:    &DCBlocker{},
	}
	ch.reset(sampleRate)
	return ch
}

// reset rebuilds every stage for sampleRate at the current ratio. Shelf
// coefficients are pushed by the caller afterwards.
func (ch *channel) reset(sampleRate float64) {
	ch.shelf.Reset()
	ch.os.Reset(sampleRate)
	next := NewClippingStage(sampleRate * float64(ch.os.Ratio()))
	ch.clipper = next
	ch.dc.SetSampleRate(sampleRate)
}

func (ch *channel) setRatioIndex(idx int, sampleRate float64) {
	ch.os.idx = ClampOversamplingIndex(idx)
	ch.reset(sampleRate)
}

func (ch *channel) process(x float64, c *Coefficients) float64 {
	x = c.DriveGain*ch.shelf.ProcessSample(x) + c.BiasVolts
	buf := ch.os.Upsample(x)
	for k := range buf {
		buf[k] = ch.clipper.ProcessSample(buf[k])
	}
	y := ch.os.Downsample()
	return dspcore.FlushDenormals(ch.dc.ProcessSample(y))
}
