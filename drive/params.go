package drive

import (
	"math"
	"strings"
	"sync/atomic"
)

// ParamID identifies a user parameter.
type ParamID int

const (
	ParamBass ParamID = iota
	ParamTreble
	ParamDrive
	ParamBias
	ParamBassModDepth
	ParamTrebleModDepth
	ParamDriveModDepth
	NumParams
)

// ParamSpec describes the range and default of a parameter.
type ParamSpec struct {
	ID      ParamID `json:"id"`
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

var paramSpecs = [NumParams]ParamSpec{
	{ID: ParamBass, Key: "bass", Name: "Bass", Min: -1, Max: 1, Default: 0},
	{ID: ParamTreble, Key: "treble", Name: "Treble", Min: -1, Max: 1, Default: 0},
	{ID: ParamDrive, Key: "drive", Name: "Drive", Min: 0, Max: 1, Default: 0.5},
	{ID: ParamBias, Key: "bias", Name: "Bias", Min: 0, Max: 1, Default: 0},
	{ID: ParamBassModDepth, Key: "bassModDepth", Name: "Bass modulation depth", Min: -1, Max: 1, Default: 0},
	{ID: ParamTrebleModDepth, Key: "trebleModDepth", Name: "Treble modulation depth", Min: -1, Max: 1, Default: 0},
	{ID: ParamDriveModDepth, Key: "driveModDepth", Name: "Drive modulation depth", Min: -1, Max: 1, Default: 0},
}

// Specs returns the metadata of every parameter in ParamID order.
func Specs() []ParamSpec {
	out := make([]ParamSpec, NumParams)
	copy(out, paramSpecs[:])
	return out
}

// Clamp limits v to the spec range. NaN maps to the default.
func (s ParamSpec) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return s.Default
	}
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Param is a single parameter value that may be written from a control
// goroutine while the audio goroutine reads it.
type Param struct {
	bits atomic.Uint64
	spec ParamSpec
}

// Get returns the current value.
func (p *Param) Get() float64 {
	return math.Float64frombits(p.bits.Load())
}

// Set stores v clamped to the parameter range.
func (p *Param) Set(v float64) {
	p.bits.Store(math.Float64bits(p.spec.Clamp(v)))
}

// Reset restores the default value.
func (p *Param) Reset() {
	p.bits.Store(math.Float64bits(p.spec.Default))
}

// Spec returns the parameter metadata.
func (p *Param) Spec() ParamSpec { return p.spec }

// Params is the full set of user parameters.
type Params struct {
	Bass           Param
	Treble         Param
	Drive          Param
	Bias           Param
	BassModDepth   Param
	TrebleModDepth Param
	DriveModDepth  Param
}

// NewParams returns parameters at their defaults.
func NewParams() *Params {
	p := &Params{}
	for id := ParamID(0); id < NumParams; id++ {
		param := p.ByID(id)
		param.spec = paramSpecs[id]
		param.Reset()
	}
	return p
}

// ByID returns the parameter for id, or nil when id is out of range.
func (p *Params) ByID(id ParamID) *Param {
	switch id {
	case ParamBass:
		return &p.Bass
	case ParamTreble:
		return &p.Treble
	case ParamDrive:
		return &p.Drive
	case ParamBias:
		return &p.Bias
	case ParamBassModDepth:
		return &p.BassModDepth
	case ParamTrebleModDepth:
		return &p.TrebleModDepth
	case ParamDriveModDepth:
		return &p.DriveModDepth
	}
	return nil
}

// Lookup finds a parameter by key ("drive", "bassModDepth", ...). The match
// ignores case.
func (p *Params) Lookup(key string) (*Param, bool) {
	for id := ParamID(0); id < NumParams; id++ {
		if strings.EqualFold(paramSpecs[id].Key, key) {
			return p.ByID(id), true
		}
	}
	return nil, false
}

// ResetDefaults restores every parameter to its default.
func (p *Params) ResetDefaults() {
	for id := ParamID(0); id < NumParams; id++ {
		p.ByID(id).Reset()
	}
}

// ParamValues is a plain snapshot of Params.
type ParamValues struct {
	Bass           float64
	Treble         float64
	Drive          float64
	Bias           float64
	BassModDepth   float64
	TrebleModDepth float64
	DriveModDepth  float64
}

// DefaultParamValues returns the snapshot of a freshly reset parameter set.
func DefaultParamValues() ParamValues {
	return ParamValues{
		Bass:           paramSpecs[ParamBass].Default,
		Treble:         paramSpecs[ParamTreble].Default,
		Drive:          paramSpecs[ParamDrive].Default,
		Bias:           paramSpecs[ParamBias].Default,
		BassModDepth:   paramSpecs[ParamBassModDepth].Default,
		TrebleModDepth: paramSpecs[ParamTrebleModDepth].Default,
		DriveModDepth:  paramSpecs[ParamDriveModDepth].Default,
	}
}

// Field returns a pointer to the value of id, or nil for an unknown id.
func (v *ParamValues) Field(id ParamID) *float64 {
	switch id {
	case ParamBass:
		return &v.Bass
	case ParamTreble:
		return &v.Treble
	case ParamDrive:
		return &v.Drive
	case ParamBias:
		return &v.Bias
	case ParamBassModDepth:
		return &v.BassModDepth
	case ParamTrebleModDepth:
		return &v.TrebleModDepth
	case ParamDriveModDepth:
		return &v.DriveModDepth
	}
	return nil
}

// Values takes a snapshot. Each field is read atomically; the set as a
// whole is not.
func (p *Params) Values() ParamValues {
	return ParamValues{
		Bass:           p.Bass.Get(),
		Treble:         p.Treble.Get(),
		Drive:          p.Drive.Get(),
		Bias:           p.Bias.Get(),
		BassModDepth:   p.BassModDepth.Get(),
		TrebleModDepth: p.TrebleModDepth.Get(),
		DriveModDepth:  p.DriveModDepth.Get(),
	}
}

// SetValues stores every field of v, clamped.
func (p *Params) SetValues(v ParamValues) {
	p.Bass.Set(v.Bass)
	p.Treble.Set(v.Treble)
	p.Drive.Set(v.Drive)
	p.Bias.Set(v.Bias)
	p.BassModDepth.Set(v.BassModDepth)
	p.TrebleModDepth.Set(v.TrebleModDepth)
	p.DriveModDepth.Set(v.DriveModDepth)
}

// Voltage is an atomically stored control voltage.
type Voltage struct {
	bits atomic.Uint64
}

// Get returns the stored voltage.
func (v *Voltage) Get() float64 { return math.Float64frombits(v.bits.Load()) }

// Set stores volts. Non-finite values are stored as 0.
func (v *Voltage) Set(volts float64) {
	if math.IsNaN(volts) || math.IsInf(volts, 0) {
		volts = 0
	}
	v.bits.Store(math.Float64bits(volts))
}

// ModInputs holds the modulation input voltages. A disconnected input reads 0 V.
type ModInputs struct {
	Bass   Voltage
	Treble Voltage
	Drive  Voltage
}

// ModValues is a plain snapshot of ModInputs.
type ModValues struct {
	Bass   float64
	Treble float64
	Drive  float64
}

// Values takes a snapshot.
func (m *ModInputs) Values() ModValues {
	return ModValues{Bass: m.Bass.Get(), Treble: m.Treble.Get(), Drive: m.Drive.Get()}
}

// SetValues stores all three voltages.
func (m *ModInputs) SetValues(v ModValues) {
	m.Bass.Set(v.Bass)
	m.Treble.Set(v.Treble)
	m.Drive.Set(v.Drive)
}

// Reset sets every input to 0 V.
func (m *ModInputs) Reset() {
	m.SetValues(ModValues{})
}
