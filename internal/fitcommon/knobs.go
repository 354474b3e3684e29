// Package fitcommon holds the pieces shared by the parameter-fitting tools:
// the knob vector the optimizer moves and flag helpers.
package fitcommon

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-drive/drive"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// DefaultKnobKeys are the parameters fitted when no list is given. The
// modulation depths have no effect without CV and are left out.
var DefaultKnobKeys = []string{"bass", "treble", "drive", "bias"}

// Knob is one parameter the optimizer may move, with its search range.
type Knob struct {
	ID   drive.ParamID
	Name string
	Min  float64
	Max  float64
}

// Candidate holds one value per knob, in knob order.
type Candidate struct {
	Vals []float64
}

// Clone returns a deep copy of c.
func (c Candidate) Clone() Candidate {
	vals := make([]float64, len(c.Vals))
	copy(vals, c.Vals)
	return Candidate{Vals: vals}
}

// ParseKnobs resolves a comma-separated list of parameter keys into knobs
// spanning each parameter's full range. An empty list selects
// DefaultKnobKeys.
func ParseKnobs(raw string) ([]Knob, error) {
	keys := DefaultKnobKeys
	if strings.TrimSpace(raw) != "" {
		keys = strings.Split(raw, ",")
	}
	params := drive.NewParams()
	knobs := make([]Knob, 0, len(keys))
	seen := make(map[drive.ParamID]bool, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		p, ok := params.Lookup(k)
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", k)
		}
		spec := p.Spec()
		if seen[spec.ID] {
			continue
		}
		seen[spec.ID] = true
		knobs = append(knobs, Knob{ID: spec.ID, Name: spec.Key, Min: spec.Min, Max: spec.Max})
	}
	if len(knobs) == 0 {
		return nil, fmt.Errorf("no parameters selected")
	}
	return knobs, nil
}

// InitCandidate reads the starting point from base.
func InitCandidate(knobs []Knob, base drive.ParamValues) Candidate {
	vals := make([]float64, len(knobs))
	for i, k := range knobs {
		vals[i] = dspcore.Clamp(*base.Field(k.ID), k.Min, k.Max)
	}
	return Candidate{Vals: vals}
}

// FromNormalized maps an optimizer position in [0,1]^n onto knob values.
// Missing or out-of-range coordinates are clamped.
func FromNormalized(pos []float64, knobs []Knob) Candidate {
	vals := make([]float64, len(knobs))
	for i, k := range knobs {
		x := 0.0
		if i < len(pos) && !math.IsNaN(pos[i]) {
			x = dspcore.Clamp(pos[i], 0, 1)
		}
		vals[i] = k.Min + x*(k.Max-k.Min)
	}
	return Candidate{Vals: vals}
}

// Normalized is the inverse of FromNormalized.
func (c Candidate) Normalized(knobs []Knob) []float64 {
	pos := make([]float64, len(knobs))
	for i, k := range knobs {
		if i >= len(c.Vals) || k.Max <= k.Min {
			continue
		}
		pos[i] = dspcore.Clamp((c.Vals[i]-k.Min)/(k.Max-k.Min), 0, 1)
	}
	return pos
}

// Apply writes the candidate onto a copy of base.
func (c Candidate) Apply(base drive.ParamValues, knobs []Knob) drive.ParamValues {
	out := base
	for i, k := range knobs {
		if i < len(c.Vals) {
			*out.Field(k.ID) = dspcore.Clamp(c.Vals[i], k.Min, k.Max)
		}
	}
	return out
}

// Map returns the candidate keyed by parameter key, for reports.
func (c Candidate) Map(knobs []Knob) map[string]float64 {
	m := make(map[string]float64, len(knobs))
	for i, k := range knobs {
		if i < len(c.Vals) {
			m[k.Name] = c.Vals[i]
		}
	}
	return m
}

// FromMap overlays values from a report map onto fallback. It reports
// whether any knob was found.
func FromMap(m map[string]float64, knobs []Knob, fallback Candidate) (Candidate, bool) {
	out := fallback.Clone()
	updated := false
	for i, k := range knobs {
		if v, ok := m[k.Name]; ok && i < len(out.Vals) {
			out.Vals[i] = dspcore.Clamp(v, k.Min, k.Max)
			updated = true
		}
	}
	return out, updated
}
