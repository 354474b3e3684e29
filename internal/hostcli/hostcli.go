// Package hostcli holds flag and logging helpers shared by the drive tools.
package hostcli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/preset"
)

// SetupLogging configures logrus for a command line tool.
func SetupLogging(verbose bool) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Die logs a fatal error and exits.
func Die(err error, msg string) {
	logrus.WithError(err).Error(msg)
	os.Exit(1)
}

// FlagName converts a parameter key such as "bassModDepth" to the flag
// name "bass-mod-depth".
func FlagName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParamFlags registers one flag per drive parameter. Only flags given on
// the command line override a preset.
type ParamFlags struct {
	fs    *flag.FlagSet
	vals  [drive.NumParams]*float64
	osIdx *int
}

// RegisterParamFlags adds the parameter flags and -os to fs.
func RegisterParamFlags(fs *flag.FlagSet) *ParamFlags {
	p := &ParamFlags{fs: fs}
	for _, s := range drive.Specs() {
		p.vals[s.ID] = fs.Float64(FlagName(s.Key), s.Default,
			fmt.Sprintf("%s in [%g,%g]", s.Name, s.Min, s.Max))
	}
	p.osIdx = fs.Int("os", drive.DefaultOversamplingIndex,
		fmt.Sprintf("Oversampling index 0-%d (%s)", drive.NumOversamplingIndices-1, strings.Join(drive.OversamplingLabels(), ", ")))
	return p
}

// Apply writes the flags that were set onto dst, rejecting out-of-range
// values the same way preset files do.
func (p *ParamFlags) Apply(dst *preset.Preset) error {
	f := &preset.File{}
	fields := [drive.NumParams]**float64{
		drive.ParamBass:           &f.Bass,
		drive.ParamTreble:         &f.Treble,
		drive.ParamDrive:          &f.Drive,
		drive.ParamBias:           &f.Bias,
		drive.ParamBassModDepth:   &f.BassModDepth,
		drive.ParamTrebleModDepth: &f.TrebleModDepth,
		drive.ParamDriveModDepth:  &f.DriveModDepth,
	}
	specs := drive.Specs()
	p.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "os" {
			f.OversamplingIndex = p.osIdx
			return
		}
		for _, s := range specs {
			if FlagName(s.Key) == fl.Name {
				*fields[s.ID] = p.vals[s.ID]
			}
		}
	})
	return preset.ApplyFile(dst, f)
}

// LoadPreset loads path, or the defaults when path is empty, and applies
// the parameter flags on top.
func (p *ParamFlags) LoadPreset(path string) (*preset.Preset, error) {
	pr := preset.Default()
	if path != "" {
		var err error
		if pr, err = preset.LoadJSON(path); err != nil {
			return nil, err
		}
	}
	if err := p.Apply(pr); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return pr, nil
}

// Fields returns the preset as logrus fields.
func Fields(pr *preset.Preset) logrus.Fields {
	v := pr.Params
	return logrus.Fields{
		"bass":   v.Bass,
		"treble": v.Treble,
		"drive":  v.Drive,
		"bias":   v.Bias,
		"os":     drive.OversamplingLabels()[drive.ClampOversamplingIndex(pr.OversamplingIndex)],
	}
}
