package drive

import (
	"math"

	"github.com/cwbudde/algo-drive/dsp"
)

// Circuit values of the clipping stage.
const (
	ClipperSourceOhms   = 4700.0
	ClipperCapFarads    = 47e-9
	DiodeSaturationAmps = 2.52e-9
	DiodeThermalVolts   = 0.02585
)

// ClippingStage is an RC-loaded antiparallel diode clipper. Its sample rate
// is fixed at construction; build a new stage when the rate changes.
type ClippingStage struct {
	sampleRate float64
	vs         *dsp.ResistiveVoltageSource
	c          *dsp.Capacitor
	p          *dsp.Parallel
	dp         *dsp.DiodePair
}

// NewClippingStage builds the circuit for sampleRate (the oversampled rate).
func NewClippingStage(sampleRate float64) *ClippingStage {
	vs := dsp.NewResistiveVoltageSource(ClipperSourceOhms)
	c := dsp.NewCapacitor(ClipperCapFarads, sampleRate)
	p := dsp.NewParallel(vs, c)
	return &ClippingStage{
		sampleRate: sampleRate,
		vs:         vs,
		c:          c,
		p:          p,
		dp:         dsp.NewDiodePair(p.Resistance(), DiodeSaturationAmps, DiodeThermalVolts),
	}
}

// SampleRate returns the rate the stage was built for.
func (s *ClippingStage) SampleRate() float64 { return s.sampleRate }

// ProcessSample drives the circuit with x volts and returns the capacitor
// voltage.
func (s *ClippingStage) ProcessSample(x float64) float64 {
	s.vs.SetVoltage(x)
	s.dp.Incident(s.p.Reflected())
	s.p.Incident(s.dp.Reflected())
	y := s.c.Voltage()
	if math.IsNaN(y) || math.IsInf(y, 0) {
		s.c.Reset()
		return 0
	}
	return y
}

// Reset discharges the capacitor.
func (s *ClippingStage) Reset() { s.c.Reset() }
