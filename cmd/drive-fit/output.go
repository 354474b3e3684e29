package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-drive/analysis"
	"github.com/cwbudde/algo-drive/internal/fitcommon"
	"github.com/cwbudde/algo-drive/internal/wavio"
	"github.com/cwbudde/algo-drive/preset"
)

type runReport struct {
	DryPath         string             `json:"dry_path"`
	ReferencePath   string             `json:"reference_path"`
	PresetPath      string             `json:"preset_path"`
	OutputPreset    string             `json:"output_preset"`
	SampleRate      int                `json:"sample_rate"`
	DurationSec     float64            `json:"elapsed_seconds"`
	Evaluations     int                `json:"evaluations"`
	MayflyVariant   string             `json:"mayfly_variant"`
	BestScore       float64            `json:"best_score"`
	BestSimilarity  float64            `json:"best_similarity"`
	BestMetrics     analysis.Metrics   `json:"best_metrics"`
	BestKnobs       map[string]float64 `json:"best_knobs"`
	CheckpointCount int                `json:"checkpoint_count"`
}

func writeOutputs(cfg *optimizationConfig, res *optimizationResult) error {
	p := candidatePreset(cfg, res.best)
	if p.Name == "" {
		p.Name = "fitted"
	}
	if err := preset.SaveJSON(cfg.outputPreset, p); err != nil {
		return err
	}
	rep := runReport{
		DryPath:         cfg.dryPath,
		ReferencePath:   cfg.referencePath,
		PresetPath:      cfg.presetPath,
		OutputPreset:    cfg.outputPreset,
		SampleRate:      cfg.sampleRate,
		DurationSec:     res.elapsed,
		Evaluations:     res.evals,
		MayflyVariant:   cfg.mayflyVariant,
		BestScore:       res.bestMetrics.Score,
		BestSimilarity:  res.bestMetrics.Similarity,
		BestMetrics:     res.bestMetrics,
		BestKnobs:       res.best.Map(cfg.knobs),
		CheckpointCount: res.checkpoints,
	}
	return writeJSON(cfg.resolvedReportPath(), rep)
}

func writeBestCandidate(cfg *optimizationConfig, best fitcommon.Candidate) error {
	out, err := renderCandidate(cfg, best)
	if err != nil {
		return err
	}
	return wavio.WriteMono(cfg.writeBestCandidate, out, cfg.sampleRate)
}

func loadCandidateFromReport(path string, knobs []fitcommon.Knob, fallback fitcommon.Candidate) (fitcommon.Candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}
	var rep runReport
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	c, ok := fitcommon.FromMap(rep.BestKnobs, knobs, fallback)
	return c, ok, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
