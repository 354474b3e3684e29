package drive

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	// ControlDivision is the number of frames between coefficient updates.
	ControlDivision = 64

	// ShelfCornerHz is the transition frequency of the tone shelf.
	ShelfCornerHz = 600.0

	// ModVoltsFullScale is the control voltage that applies a full depth swing.
	ModVoltsFullScale = 5.0

	shelfRangeDB   = 9.0
	shelfOffsetDB  = -20.0
	driveRangeDB   = 30.0
	biasVoltsScale = 2.5
)

// Combine mixes a base value with a modulation voltage scaled by depth and
// clamps the result to [lo, hi]. NaN results collapse to lo.
func Combine(base, depth, cv, lo, hi float64) float64 {
	v := base + (cv/ModVoltsFullScale)*depth
	if math.IsNaN(v) {
		return lo
	}
	return dspcore.Clamp(v, lo, hi)
}

// Effective holds the modulated parameter values for one control tick.
type Effective struct {
	Bass   float64
	Treble float64
	Drive  float64
}

// Modulate applies the modulation inputs to the parameter snapshot.
func Modulate(p ParamValues, m ModValues) Effective {
	e := Effective{
		Bass:   Combine(p.Bass, p.BassModDepth, m.Bass, -1, 1),
		Treble: Combine(p.Treble, p.TrebleModDepth, m.Treble, -1, 1),
		Drive:  Combine(p.Drive, p.DriveModDepth, m.Drive, -1, 1),
	}
	e.Drive = dspcore.Clamp(e.Drive, 0, 1)
	return e
}

// Coefficients are the control-rate values shared by both channels.
type Coefficients struct {
	LowGain   float64
	HighGain  float64
	DriveGain float64
	BiasVolts float64
}

// Cook derives Coefficients from a parameter snapshot and modulation inputs.
func Cook(p ParamValues, m ModValues) Coefficients {
	e := Modulate(p, m)
	return Coefficients{
		LowGain:   dspcore.DBToLinear(e.Bass*shelfRangeDB + shelfOffsetDB),
		HighGain:  dspcore.DBToLinear(e.Treble*shelfRangeDB + shelfOffsetDB),
		DriveGain: dspcore.DBToLinear(e.Drive * driveRangeDB),
		BiasVolts: p.Bias * biasVoltsScale,
	}
}

// controlDivider fires once every division calls to tick.
type controlDivider struct {
	division int
	clock    int
}

func (d *controlDivider) tick() bool {
	d.clock++
	if d.clock >= d.division {
		d.clock = 0
		return true
	}
	return false
}

func (d *controlDivider) reset() { d.clock = 0 }
