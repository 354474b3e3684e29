package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-drive/cabinet"
	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/internal/hostcli"
	"github.com/cwbudde/algo-drive/internal/modscript"
	"github.com/cwbudde/algo-drive/internal/render"
	"github.com/cwbudde/algo-drive/internal/wavio"
	"github.com/cwbudde/algo-drive/preset"
)

type config struct {
	input      string
	output     string
	presetPath string
	savePreset string
	sineHz     float64
	sineAmp    float64
	duration   float64
	sampleRate int
	mono       bool
	modScript  string
	irPath     string
	irMix      float64
	normalize  float64
	verbose    bool
}

func main() {
	cfg := config{}
	flag.StringVar(&cfg.input, "input", "", "Input WAV path (omit to render a test sine)")
	flag.StringVar(&cfg.output, "output", "output.wav", "Output WAV path")
	flag.StringVar(&cfg.presetPath, "preset", "", "Preset JSON path (default: factory settings)")
	flag.StringVar(&cfg.savePreset, "save-preset", "", "Optional path to write the effective preset")
	flag.Float64Var(&cfg.sineHz, "sine", 220, "Test sine frequency in Hz when no -input is given")
	flag.Float64Var(&cfg.sineAmp, "amp", 0.5, "Test sine amplitude")
	flag.Float64Var(&cfg.duration, "duration", 2, "Test sine duration in seconds")
	flag.IntVar(&cfg.sampleRate, "sample-rate", 48000, "Render sample rate in Hz (input is resampled)")
	flag.BoolVar(&cfg.mono, "mono", false, "Leave the right input unconnected")
	flag.StringVar(&cfg.modScript, "mod-script", "", "Lua script defining cv(t) for the modulation inputs")
	flag.StringVar(&cfg.irPath, "ir", "", "Optional cabinet IR WAV applied after the drive")
	flag.Float64Var(&cfg.irMix, "ir-mix", 1, "Cabinet wet proportion in [0,1]")
	flag.Float64Var(&cfg.normalize, "normalize", 0, "Normalize output peak to this level (0 = off)")
	flag.BoolVar(&cfg.verbose, "v", false, "Debug logging")
	params := hostcli.RegisterParamFlags(flag.CommandLine)
	flag.Parse()

	hostcli.SetupLogging(cfg.verbose)
	pr, err := params.LoadPreset(cfg.presetPath)
	if err != nil {
		hostcli.Die(err, "failed to load preset")
	}
	if err := run(cfg, pr); err != nil {
		hostcli.Die(err, "render failed")
	}
}

func run(cfg config, pr *preset.Preset) error {
	if cfg.sampleRate <= 0 {
		return fmt.Errorf("sample-rate must be > 0, got %d", cfg.sampleRate)
	}
	in, err := loadInput(cfg)
	if err != nil {
		return err
	}

	proc, err := drive.New(float64(cfg.sampleRate), nil)
	if err != nil {
		return err
	}
	if err := pr.Apply(proc); err != nil {
		return err
	}

	opts := render.Options{Mono: cfg.mono || in.Mono()}
	if cfg.modScript != "" {
		s, err := modscript.Load(cfg.modScript, float64(cfg.sampleRate))
		if err != nil {
			return err
		}
		defer s.Close()
		opts.Script = s
	}
	if cfg.irPath != "" {
		cab := cabinet.New(cfg.sampleRate)
		if err := cab.LoadWAV(cfg.irPath); err != nil {
			return fmt.Errorf("cabinet IR: %w", err)
		}
		cab.SetMix(cfg.irMix)
		opts.Cabinet = cab
		logrus.WithFields(logrus.Fields{"path": cfg.irPath, "taps": cab.IRLen(), "mix": cab.Mix()}).Debug("cabinet loaded")
	}

	logrus.WithFields(hostcli.Fields(pr)).WithFields(logrus.Fields{
		"frames":      in.Frames(),
		"sample_rate": cfg.sampleRate,
		"mono":        opts.Mono,
	}).Info("rendering")

	left, right, err := render.Process(proc, in.Left, in.Right, opts)
	if err != nil {
		return err
	}
	if cfg.normalize > 0 {
		g := wavio.Normalize(cfg.normalize, left, right)
		logrus.WithField("gain", g).Debug("normalized")
	}
	peak := wavio.Peak(left, right)
	if peak > 1 {
		logrus.WithField("peak", peak).Warn("output clips at 16 bit; consider -normalize")
	}

	if err := wavio.WriteStereo(cfg.output, left, right, cfg.sampleRate); err != nil {
		return err
	}
	if cfg.savePreset != "" {
		saved := preset.Capture(proc)
		saved.Name = pr.Name
		if err := preset.SaveJSON(cfg.savePreset, saved); err != nil {
			return err
		}
	}
	logrus.WithFields(logrus.Fields{
		"output": cfg.output,
		"frames": len(left),
		"peak":   peak,
		"rms":    wavio.RMS(left, right),
	}).Info("done")
	return nil
}

func loadInput(cfg config) (*wavio.Stereo, error) {
	if cfg.input == "" {
		n := int(float64(cfg.sampleRate) * cfg.duration)
		x, err := signal.NewGenerator(core.WithSampleRate(float64(cfg.sampleRate))).Sine(cfg.sineHz, cfg.sineAmp, n)
		if err != nil {
			return nil, err
		}
		return &wavio.Stereo{Left: x, SampleRate: cfg.sampleRate, Channels: 1}, nil
	}
	if _, err := os.Stat(cfg.input); err != nil {
		return nil, err
	}
	in, err := wavio.ReadStereo(cfg.input)
	if err != nil {
		return nil, err
	}
	if err := in.Resample(cfg.sampleRate); err != nil {
		return nil, err
	}
	return in, nil
}
