package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-drive/analysis"
	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/internal/hostcli"
	"github.com/cwbudde/algo-drive/internal/render"
	"github.com/cwbudde/algo-drive/internal/wavio"
	"github.com/cwbudde/algo-drive/preset"
)

func main() {
	referencePath := flag.String("reference", "", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render -dry through the processor")
	dryPath := flag.String("dry", "", "Dry WAV rendered as the candidate when -candidate is empty")
	presetPath := flag.String("preset", "", "Preset JSON path for the rendered candidate")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the rendered candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	verbose := flag.Bool("v", false, "Debug logging")
	params := hostcli.RegisterParamFlags(flag.CommandLine)
	flag.Parse()

	hostcli.SetupLogging(*verbose)
	ref, err := readAt(*referencePath, *sampleRate)
	if err != nil {
		hostcli.Die(err, "failed to read reference")
	}

	var cand []float64
	if *candidatePath != "" {
		if cand, err = readAt(*candidatePath, *sampleRate); err != nil {
			hostcli.Die(err, "failed to read candidate")
		}
	} else {
		pr, err := params.LoadPreset(*presetPath)
		if err != nil {
			hostcli.Die(err, "failed to load preset")
		}
		if cand, err = renderDry(*dryPath, pr, *sampleRate); err != nil {
			hostcli.Die(err, "failed to render candidate")
		}
		if *writeCandidate != "" {
			if err := wavio.WriteMono(*writeCandidate, cand, *sampleRate); err != nil {
				hostcli.Die(err, "failed to write candidate wav")
			}
		}
	}

	metrics := analysis.Compare(ref, cand, *sampleRate)
	logrus.WithFields(logrus.Fields{"score": metrics.Score, "dominant": metrics.Dominant}).Debug("compared")
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics); err != nil {
			hostcli.Die(err, "json encode failed")
		}
		return
	}
	printMetrics(os.Stdout, metrics)
}

func readAt(path string, sampleRate int) ([]float64, error) {
	if path == "" {
		return nil, errors.New("no path given")
	}
	x, sr, err := wavio.ReadMono(path)
	if err != nil {
		return nil, err
	}
	return wavio.ResampleIfNeeded(x, sr, sampleRate)
}

func renderDry(dryPath string, pr *preset.Preset, sampleRate int) ([]float64, error) {
	dry, err := readAt(dryPath, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("dry: %w", err)
	}
	proc, err := drive.New(float64(sampleRate), nil)
	if err != nil {
		return nil, err
	}
	if err := pr.Apply(proc); err != nil {
		return nil, err
	}
	out, _, err := render.Process(proc, dry, nil, render.Options{Mono: true})
	return out, err
}

func printMetrics(w io.Writer, m analysis.Metrics) {
	fmt.Fprintf(w, "Reference frames: %d\n", m.ReferenceFrames)
	fmt.Fprintf(w, "Candidate frames: %d\n", m.CandidateFrames)
	fmt.Fprintf(w, "Aligned frames:   %d\n", m.AlignedFrames)
	lagMS := 0.0
	if m.SampleRate > 0 {
		lagMS = 1000.0 * float64(m.LagSamples) / float64(m.SampleRate)
	}
	fmt.Fprintf(w, "Lag:              %d samples (%.3f ms)\n\n", m.LagSamples, lagMS)
	fmt.Fprintf(w, "Component        Raw          Norm   Weight  Contribution\n")
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	row := func(name, raw, key string, norm, weight float64) {
		marker := ""
		if m.Dominant == key {
			marker = " ◄"
		}
		fmt.Fprintf(w, "%-16s %-12s %5.1f%%  ×%.2f   → %.4f%s\n", name, raw, norm*100, weight, norm*weight, marker)
	}
	row("Time RMSE", fmt.Sprintf("%.6f", m.TimeRMSE), "time", m.TimeNorm, analysis.WeightTime)
	row("Envelope RMSE", fmt.Sprintf("%.1f dB", m.EnvelopeRMSEDB), "envelope", m.EnvelopeNorm, analysis.WeightEnvelope)
	row("Spectral RMSE", fmt.Sprintf("%.1f dB", m.SpectralRMSEDB), "spectral", m.SpectralNorm, analysis.WeightSpectral)
	row("Level diff", fmt.Sprintf("%.1f dB", m.LevelDiffDB), "level", m.LevelNorm, analysis.WeightLevel)
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Fprintf(w, "Similarity:       %.2f%%\n", m.Similarity*100.0)
}
