package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-drive/internal/fitcommon"
	"github.com/cwbudde/algo-drive/internal/wavio"
	"github.com/cwbudde/algo-drive/preset"
)

func testConfig(t *testing.T, knobs string) *optimizationConfig {
	t.Helper()
	const sr = 48000
	dry := make([]float64, sr/4)
	for i := range dry {
		dry[i] = 0.4 * math.Sin(2*math.Pi*110*float64(i)/sr)
	}
	ks, err := fitcommon.ParseKnobs(knobs)
	if err != nil {
		t.Fatalf("ParseKnobs: %v", err)
	}
	dir := t.TempDir()
	cfg := &optimizationConfig{
		dry:              dry,
		base:             preset.Default(),
		knobs:            ks,
		sampleRate:       sr,
		seed:             3,
		timeBudget:       30,
		maxEvals:         40,
		reportEvery:      10,
		checkpointEvery:  1,
		mayflyVariant:    "desma",
		mayflyPop:        4,
		mayflyRoundEvals: 16,
		workers:          1,
		outputPreset:     filepath.Join(dir, "fitted.json"),
	}
	cfg.initCandidate = fitcommon.InitCandidate(cfg.knobs, cfg.base.Params)
	return cfg
}

func TestOptimizationImprovesOnStart(t *testing.T) {
	cfg := testConfig(t, "drive,bias")

	target := cfg.base.Params
	target.Drive = 0.9
	target.Bias = 0.2
	ref, err := renderCandidate(cfg, fitcommon.InitCandidate(cfg.knobs, target))
	if err != nil {
		t.Fatalf("render reference: %v", err)
	}
	cfg.reference = ref

	start, err := evaluate(cfg, cfg.initCandidate)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	res, err := runOptimization(cfg)
	if err != nil {
		t.Fatalf("runOptimization: %v", err)
	}
	if res.evals > cfg.maxEvals {
		t.Fatalf("evals = %d, budget %d", res.evals, cfg.maxEvals)
	}
	if res.bestMetrics.Score > start.Score {
		t.Fatalf("best score %g worse than start %g", res.bestMetrics.Score, start.Score)
	}
	if _, err := os.Stat(cfg.resolvedReportPath()); res.checkpoints > 0 && err != nil {
		t.Fatalf("checkpoint report missing: %v", err)
	}
}

func TestIdenticalReferenceScoresNearZero(t *testing.T) {
	cfg := testConfig(t, "")
	ref, err := renderCandidate(cfg, cfg.initCandidate)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	cfg.reference = ref
	m, err := evaluate(cfg, cfg.initCandidate)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if m.Score > 0.05 {
		t.Fatalf("score = %g for identical render", m.Score)
	}
}

func TestOutputsResume(t *testing.T) {
	cfg := testConfig(t, "")
	best := fitcommon.Candidate{Vals: []float64{-0.5, 0.25, 0.8, 0.1}}
	if err := writeOutputs(cfg, &optimizationResult{best: best}); err != nil {
		t.Fatalf("writeOutputs: %v", err)
	}

	p, err := preset.LoadJSON(cfg.outputPreset)
	if err != nil {
		t.Fatalf("load fitted preset: %v", err)
	}
	if p.Params.Drive != 0.8 || p.Params.Bass != -0.5 || p.Name != "fitted" {
		t.Fatalf("fitted preset = %+v", p)
	}

	got, ok, err := loadCandidateFromReport(cfg.resolvedReportPath(), cfg.knobs, cfg.initCandidate)
	if err != nil || !ok {
		t.Fatalf("loadCandidateFromReport ok=%v err=%v", ok, err)
	}
	for i := range best.Vals {
		if got.Vals[i] != best.Vals[i] {
			t.Fatalf("resumed %v, want %v", got.Vals, best.Vals)
		}
	}

	_, ok, err = loadCandidateFromReport(filepath.Join(t.TempDir(), "none.json"), cfg.knobs, cfg.initCandidate)
	if err != nil || ok {
		t.Fatalf("missing report: ok=%v err=%v", ok, err)
	}
}

func TestWriteBestCandidate(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.writeBestCandidate = filepath.Join(t.TempDir(), "best.wav")
	if err := writeBestCandidate(cfg, cfg.initCandidate); err != nil {
		t.Fatalf("writeBestCandidate: %v", err)
	}
	x, sr, err := wavio.ReadMono(cfg.writeBestCandidate)
	if err != nil || sr != cfg.sampleRate || len(x) != len(cfg.dry) {
		t.Fatalf("best wav: len=%d sr=%d err=%v", len(x), sr, err)
	}
}

func TestNewMayflyConfig(t *testing.T) {
	for _, v := range []string{"ma", "desma", "olce", "eobbma", "gsasma", "mpma", "aoblmoa"} {
		cfg, err := newMayflyConfig(v, 5, 4, 3)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if cfg.ProblemSize != 4 || cfg.NC != 10 || cfg.NM < 1 {
			t.Fatalf("%s: unexpected config %+v", v, cfg)
		}
	}
	if _, err := newMayflyConfig("nope", 5, 4, 3); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestNormalizeLimits(t *testing.T) {
	cfg := &optimizationConfig{dryPath: "a.wav", referencePath: "b.wav", maxEvals: 1, timeBudget: 1, mayflyPop: 1}
	if err := cfg.normalizeLimits(); err != nil {
		t.Fatalf("normalizeLimits: %v", err)
	}
	if cfg.mayflyPop != 2 || cfg.mayflyRoundEvals != 4 || cfg.reportEvery != 1 {
		t.Fatalf("limits not normalized: %+v", cfg)
	}
	if err := (&optimizationConfig{maxEvals: 1, timeBudget: 1}).normalizeLimits(); err == nil {
		t.Fatalf("expected error without input paths")
	}
}

func TestLoadPairTrims(t *testing.T) {
	dir := t.TempDir()
	dryPath := filepath.Join(dir, "dry.wav")
	refPath := filepath.Join(dir, "ref.wav")
	if err := wavio.WriteMono(dryPath, make([]float64, 3000), 48000); err != nil {
		t.Fatal(err)
	}
	if err := wavio.WriteMono(refPath, make([]float64, 2000), 48000); err != nil {
		t.Fatal(err)
	}
	dry, ref, err := loadPair(dryPath, refPath, 48000, 0.03)
	if err != nil {
		t.Fatalf("loadPair: %v", err)
	}
	if len(dry) != 1440 || len(ref) != 1440 {
		t.Fatalf("lengths %d/%d, want 1440", len(dry), len(ref))
	}
}
