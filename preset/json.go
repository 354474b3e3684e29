// Package preset loads and saves drive settings as JSON files.
package preset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-drive/drive"
)

// File is the JSON schema for drive presets. Absent fields keep the value
// of the preset they are applied to.
type File struct {
	Name              string   `json:"name,omitempty"`
	Bass              *float64 `json:"bass,omitempty"`
	Treble            *float64 `json:"treble,omitempty"`
	Drive             *float64 `json:"drive,omitempty"`
	Bias              *float64 `json:"bias,omitempty"`
	BassModDepth      *float64 `json:"bass_mod_depth,omitempty"`
	TrebleModDepth    *float64 `json:"treble_mod_depth,omitempty"`
	DriveModDepth     *float64 `json:"drive_mod_depth,omitempty"`
	OversamplingIndex *int     `json:"os_idx,omitempty"`
}

// Preset is a complete, validated setting.
type Preset struct {
	Name              string
	Params            drive.ParamValues
	OversamplingIndex int
}

// Default returns the factory setting.
func Default() *Preset {
	return &Preset{
		Params:            drive.DefaultParamValues(),
		OversamplingIndex: drive.DefaultOversamplingIndex,
	}
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := Default()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func checkRange(id drive.ParamID, v *float64, dst *drive.ParamValues) error {
	if v == nil {
		return nil
	}
	spec := drive.Specs()[id]
	if math.IsNaN(*v) || *v < spec.Min || *v > spec.Max {
		return fmt.Errorf("%s must be in [%g,%g], got %g", spec.Key, spec.Min, spec.Max, *v)
	}
	*dst.Field(id) = *v
	return nil
}

// ApplyFile applies a parsed preset file onto an existing preset. Values
// outside the parameter ranges are rejected, not clamped.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}

	if f.Name != "" {
		dst.Name = f.Name
	}
	fields := [drive.NumParams]*float64{
		drive.ParamBass:           f.Bass,
		drive.ParamTreble:         f.Treble,
		drive.ParamDrive:          f.Drive,
		drive.ParamBias:           f.Bias,
		drive.ParamBassModDepth:   f.BassModDepth,
		drive.ParamTrebleModDepth: f.TrebleModDepth,
		drive.ParamDriveModDepth:  f.DriveModDepth,
	}
	for id, v := range fields {
		if err := checkRange(drive.ParamID(id), v, &dst.Params); err != nil {
			return err
		}
	}
	if f.OversamplingIndex != nil {
		if err := drive.ValidateOversamplingIndex(*f.OversamplingIndex); err != nil {
			return fmt.Errorf("os_idx: %w", err)
		}
		dst.OversamplingIndex = *f.OversamplingIndex
	}
	return nil
}

// ToFile converts p into a file with every field set.
func (p *Preset) ToFile() *File {
	v := p.Params
	idx := p.OversamplingIndex
	return &File{
		Name:              p.Name,
		Bass:              &v.Bass,
		Treble:            &v.Treble,
		Drive:             &v.Drive,
		Bias:              &v.Bias,
		BassModDepth:      &v.BassModDepth,
		TrebleModDepth:    &v.TrebleModDepth,
		DriveModDepth:     &v.DriveModDepth,
		OversamplingIndex: &idx,
	}
}

// SaveJSON writes p to path, creating parent directories.
func SaveJSON(path string, p *Preset) error {
	b, err := json.MarshalIndent(p.ToFile(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Apply loads the preset into a processor and rebuilds its signal chain so
// the new values take effect on the next frame. Call it from the audio
// goroutine or before playback.
func (p *Preset) Apply(proc *drive.Processor) error {
	proc.Params().SetValues(p.Params)
	return proc.SetOversamplingIndex(p.OversamplingIndex)
}

// Capture reads the current setting of a processor.
func Capture(proc *drive.Processor) *Preset {
	return &Preset{
		Params:            proc.Params().Values(),
		OversamplingIndex: proc.OversamplingIndex(),
	}
}
