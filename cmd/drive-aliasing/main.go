package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-drive/analysis"
	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/internal/hostcli"
	"github.com/cwbudde/algo-drive/internal/render"
	"github.com/cwbudde/algo-drive/preset"
)

type ratioReport struct {
	Index int                 `json:"os_idx"`
	Label string              `json:"label"`
	Tone  analysis.ToneReport `json:"tone"`
}

func main() {
	freq := flag.Float64("freq", 5000, "Test tone frequency in Hz")
	amp := flag.Float64("amp", 1, "Test tone amplitude")
	duration := flag.Float64("duration", 1, "Render length in seconds")
	sampleRate := flag.Int("sample-rate", 48000, "Sample rate in Hz")
	harmonics := flag.Int("harmonics", 9, "Harmonics to list (0 = all below Nyquist)")
	presetPath := flag.String("preset", "", "Preset JSON path")
	jsonOut := flag.Bool("json", false, "Print reports as JSON")
	verbose := flag.Bool("v", false, "Debug logging")
	params := hostcli.RegisterParamFlags(flag.CommandLine)
	flag.Parse()

	hostcli.SetupLogging(*verbose)
	pr, err := params.LoadPreset(*presetPath)
	if err != nil {
		hostcli.Die(err, "failed to load preset")
	}
	reports, err := sweep(pr, float64(*sampleRate), *freq, *amp, *duration, *harmonics)
	if err != nil {
		hostcli.Die(err, "sweep failed")
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			hostcli.Die(err, "json encode failed")
		}
		return
	}
	printReports(os.Stdout, reports)
}

// sweep renders the tone once per oversampling ratio. The first tenth of
// each render is skipped so filter transients do not count.
func sweep(pr *preset.Preset, sampleRate, freq, amp, duration float64, harmonics int) ([]ratioReport, error) {
	n := int(sampleRate * duration)
	in, err := signal.NewGenerator(core.WithSampleRate(sampleRate)).Sine(freq, amp, n)
	if err != nil {
		return nil, err
	}
	labels := drive.OversamplingLabels()
	reports := make([]ratioReport, 0, len(labels))
	for idx := range labels {
		proc, err := drive.New(sampleRate, nil)
		if err != nil {
			return nil, err
		}
		p := *pr
		p.OversamplingIndex = idx
		if err := p.Apply(proc); err != nil {
			return nil, err
		}
		out, _, err := render.Process(proc, in, nil, render.Options{Mono: true})
		if err != nil {
			return nil, err
		}
		tone, err := analysis.AnalyzeTone(out[n/10:], sampleRate, freq, harmonics)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", labels[idx], err)
		}
		logrus.WithFields(logrus.Fields{"os": labels[idx], "thd": tone.THD, "alias_db": tone.AliasDB}).Debug("analyzed")
		reports = append(reports, ratioReport{Index: idx, Label: labels[idx], Tone: tone})
	}
	return reports, nil
}

func printReports(w io.Writer, reports []ratioReport) {
	fmt.Fprintf(w, "Ratio  Fund dB   THD %%    Alias dB   H2 dB    H3 dB\n")
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	for _, r := range reports {
		h := func(k int) string {
			if k < len(r.Tone.HarmonicsDB) {
				return fmt.Sprintf("%7.1f", r.Tone.HarmonicsDB[k])
			}
			return "      -"
		}
		fmt.Fprintf(w, "%-5s %8.1f %8.2f %10.1f  %s  %s\n",
			r.Label, r.Tone.FundamentalDB, 100*r.Tone.THD, r.Tone.AliasDB, h(0), h(1))
	}
}
