package main

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/mayfly"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-drive/analysis"
	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/internal/fitcommon"
	"github.com/cwbudde/algo-drive/internal/render"
	"github.com/cwbudde/algo-drive/preset"
)

type optimizationConfig struct {
	dry       []float64
	reference []float64
	base      *preset.Preset
	knobs     []fitcommon.Knob

	initCandidate fitcommon.Candidate

	sampleRate       int
	seed             int64
	timeBudget       float64
	maxEvals         int
	reportEvery      int
	checkpointEvery  int
	mayflyVariant    string
	mayflyPop        int
	mayflyRoundEvals int
	workers          int

	dryPath            string
	referencePath      string
	presetPath         string
	outputPreset       string
	reportPath         string
	writeBestCandidate string
}

func (cfg *optimizationConfig) resolvedReportPath() string {
	if cfg.reportPath != "" {
		return cfg.reportPath
	}
	return cfg.outputPreset + ".report.json"
}

type optimizationResult struct {
	best        fitcommon.Candidate
	bestMetrics analysis.Metrics
	evals       int
	elapsed     float64
	checkpoints int
}

type optimizationState struct {
	mu          sync.Mutex
	best        fitcommon.Candidate
	bestMetrics analysis.Metrics
	checkpoints int
}

// candidatePreset returns the base preset with c applied.
func candidatePreset(cfg *optimizationConfig, c fitcommon.Candidate) *preset.Preset {
	p := *cfg.base
	p.Params = c.Apply(cfg.base.Params, cfg.knobs)
	return &p
}

// renderCandidate renders the dry signal with a fresh processor so
// evaluations do not share filter state.
func renderCandidate(cfg *optimizationConfig, c fitcommon.Candidate) ([]float64, error) {
	proc, err := drive.New(float64(cfg.sampleRate), nil)
	if err != nil {
		return nil, err
	}
	if err := candidatePreset(cfg, c).Apply(proc); err != nil {
		return nil, err
	}
	out, _, err := render.Process(proc, cfg.dry, nil, render.Options{Mono: true})
	return out, err
}

func evaluate(cfg *optimizationConfig, c fitcommon.Candidate) (analysis.Metrics, error) {
	out, err := renderCandidate(cfg, c)
	if err != nil {
		return analysis.Metrics{}, err
	}
	return analysis.Compare(cfg.reference, out, cfg.sampleRate), nil
}

func runOptimization(cfg *optimizationConfig) (*optimizationResult, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(cfg.timeBudget * float64(time.Second)))
	variant := strings.ToLower(cfg.mayflyVariant)
	if _, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.knobs), 1); err != nil {
		return nil, err
	}

	best := cfg.initCandidate.Clone()
	bestM, err := evaluate(cfg, best)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	logrus.WithFields(logrus.Fields{"score": bestM.Score, "similarity": bestM.Similarity}).Info("start")

	state := &optimizationState{best: best, bestMetrics: bestM}
	var evals int64 = 1
	var rounds int64
	var improves int64
	var outputMu sync.Mutex
	var latestPersisted int64

	workers := max(1, cfg.workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) && atomic.LoadInt64(&evals) < int64(cfg.maxEvals) {
				round := int(atomic.AddInt64(&rounds, 1))
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				budget := min(cfg.mayflyRoundEvals, remaining)
				iters := max(1, budget/(2*cfg.mayflyPop))

				mc, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.knobs), iters)
				if err != nil {
					return
				}
				mc.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
				mc.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}

					cand := fitcommon.FromNormalized(pos, cfg.knobs)
					m, err := evaluate(cfg, cand)
					if err != nil {
						return currentBestScore(state) + 0.8
					}

					var improveNum int64
					checkpointDue := false
					state.mu.Lock()
					improved := m.Score < state.bestMetrics.Score
					if improved {
						state.best = cand.Clone()
						state.bestMetrics = m
						improveNum = atomic.AddInt64(&improves, 1)
						checkpointDue = improveNum%int64(cfg.checkpointEvery) == 0
					}
					snapshot := state.best.Clone()
					snapshotM := state.bestMetrics
					state.mu.Unlock()

					if improved {
						logrus.WithFields(logrus.Fields{
							"improve":    improveNum,
							"eval":       evalNum,
							"score":      snapshotM.Score,
							"similarity": snapshotM.Similarity,
						}).Info("improved")
						outputMu.Lock()
						if improveNum > latestPersisted {
							latestPersisted = improveNum
							if checkpointDue {
								persistCheckpoint(cfg, state, snapshot, snapshotM, int(atomic.LoadInt64(&evals)), time.Since(start).Seconds())
							}
						}
						outputMu.Unlock()
					}

					if evalNum%int64(cfg.reportEvery) == 0 {
						logrus.WithFields(logrus.Fields{
							"round":   round,
							"eval":    evalNum,
							"elapsed": fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
							"best":    snapshotM.Score,
						}).Debug("progress")
					}
					return m.Score
				}

				if _, err := runMayfly(mc); err != nil {
					logrus.WithError(err).WithField("round", round).Warn("mayfly round failed")
				}
			}
		}()
	}
	wg.Wait()

	state.mu.Lock()
	defer state.mu.Unlock()
	return &optimizationResult{
		best:        state.best.Clone(),
		bestMetrics: state.bestMetrics,
		evals:       int(atomic.LoadInt64(&evals)),
		elapsed:     time.Since(start).Seconds(),
		checkpoints: state.checkpoints,
	}, nil
}

func persistCheckpoint(cfg *optimizationConfig, state *optimizationState, best fitcommon.Candidate, m analysis.Metrics, evals int, elapsed float64) {
	state.mu.Lock()
	num := state.checkpoints + 1
	state.mu.Unlock()

	res := &optimizationResult{best: best, bestMetrics: m, evals: evals, elapsed: elapsed, checkpoints: num}
	if err := writeOutputs(cfg, res); err != nil {
		logrus.WithError(err).Warn("checkpoint write failed")
		return
	}
	if cfg.writeBestCandidate != "" {
		if err := writeBestCandidate(cfg, best); err != nil {
			logrus.WithError(err).Warn("failed to update best candidate wav")
		}
	}
	state.mu.Lock()
	state.checkpoints = max(state.checkpoints, num)
	state.mu.Unlock()
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *optimizationState) float64 {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.bestMetrics.Score
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported mayfly variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// Crossover draws NC/2 parent pairs from both populations.
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
