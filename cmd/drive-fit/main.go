package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-drive/internal/fitcommon"
	"github.com/cwbudde/algo-drive/internal/hostcli"
	"github.com/cwbudde/algo-drive/internal/wavio"
)

func main() {
	cfg := &optimizationConfig{}
	var knobList, workersRaw string
	var maxSeconds float64
	var resume bool
	var verbose bool

	flag.StringVar(&cfg.dryPath, "dry", "", "Dry input WAV that was fed to the target device")
	flag.StringVar(&cfg.referencePath, "reference", "", "Reference WAV recorded from the target device")
	flag.StringVar(&cfg.presetPath, "preset", "", "Base preset JSON path (default: factory settings)")
	flag.StringVar(&cfg.outputPreset, "output-preset", "fitted.json", "Path to write the best preset JSON")
	flag.StringVar(&cfg.reportPath, "report", "", "Report JSON path (default: <output-preset>.report.json)")
	flag.StringVar(&cfg.writeBestCandidate, "write-best-candidate", "", "Optional WAV path for the best render")
	flag.StringVar(&knobList, "knobs", strings.Join(fitcommon.DefaultKnobKeys, ","), "Comma-separated parameters to fit")
	flag.IntVar(&cfg.sampleRate, "sample-rate", 48000, "Render/analysis sample rate")
	flag.Float64Var(&maxSeconds, "max-seconds", 5, "Use at most this much audio per evaluation (0 = all)")
	flag.Int64Var(&cfg.seed, "seed", 1, "Random seed")
	flag.Float64Var(&cfg.timeBudget, "time-budget", 60, "Optimization time budget in seconds")
	flag.IntVar(&cfg.maxEvals, "max-evals", 2000, "Maximum objective evaluations")
	flag.IntVar(&cfg.reportEvery, "report-every", 50, "Log progress every N evaluations")
	flag.IntVar(&cfg.checkpointEvery, "checkpoint-every", 1, "Write checkpoint every N improvements")
	flag.StringVar(&cfg.mayflyVariant, "mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	flag.IntVar(&cfg.mayflyPop, "mayfly-pop", 10, "Male and female population size per Mayfly run")
	flag.IntVar(&cfg.mayflyRoundEvals, "mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.StringVar(&workersRaw, "workers", "auto", "Parallel Mayfly rounds (integer >= 1 or 'auto')")
	flag.BoolVar(&resume, "resume", true, "Resume from the best_knobs of an existing report")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	params := hostcli.RegisterParamFlags(flag.CommandLine)
	flag.Parse()

	hostcli.SetupLogging(verbose)
	if err := cfg.normalizeLimits(); err != nil {
		hostcli.Die(err, "invalid flags")
	}
	n, err := fitcommon.ParseWorkers(workersRaw)
	if err != nil {
		hostcli.Die(err, "invalid -workers")
	}
	cfg.workers = fitcommon.ResolveWorkers(n)

	if cfg.knobs, err = fitcommon.ParseKnobs(knobList); err != nil {
		hostcli.Die(err, "invalid -knobs")
	}
	if cfg.base, err = params.LoadPreset(cfg.presetPath); err != nil {
		hostcli.Die(err, "failed to load preset")
	}
	if cfg.dry, cfg.reference, err = loadPair(cfg.dryPath, cfg.referencePath, cfg.sampleRate, maxSeconds); err != nil {
		hostcli.Die(err, "failed to load audio")
	}

	cfg.initCandidate = fitcommon.InitCandidate(cfg.knobs, cfg.base.Params)
	if resume {
		path := cfg.resolvedReportPath()
		if c, ok, err := loadCandidateFromReport(path, cfg.knobs, cfg.initCandidate); err != nil {
			logrus.WithError(err).WithField("path", path).Warn("resume skipped")
		} else if ok {
			cfg.initCandidate = c
			logrus.WithField("path", path).Info("resumed candidate")
		}
	}

	res, err := runOptimization(cfg)
	if err != nil {
		hostcli.Die(err, "optimization failed")
	}
	if err := writeOutputs(cfg, res); err != nil {
		hostcli.Die(err, "failed to write outputs")
	}
	if cfg.writeBestCandidate != "" {
		if err := writeBestCandidate(cfg, res.best); err != nil {
			logrus.WithError(err).Warn("failed to write best candidate wav")
		}
	}
	logrus.WithFields(logrus.Fields{
		"evals":      res.evals,
		"elapsed":    fmt.Sprintf("%.1fs", res.elapsed),
		"score":      res.bestMetrics.Score,
		"similarity": res.bestMetrics.Similarity,
		"variant":    strings.ToLower(cfg.mayflyVariant),
		"knobs":      res.best.Map(cfg.knobs),
	}).Info("done")
}

func (cfg *optimizationConfig) normalizeLimits() error {
	if cfg.dryPath == "" || cfg.referencePath == "" {
		return errors.New("both -dry and -reference are required")
	}
	if cfg.maxEvals < 1 {
		return errors.New("max-evals must be >= 1")
	}
	if cfg.timeBudget <= 0 {
		return errors.New("time-budget must be > 0")
	}
	cfg.reportEvery = max(cfg.reportEvery, 1)
	cfg.checkpointEvery = max(cfg.checkpointEvery, 1)
	cfg.mayflyPop = max(cfg.mayflyPop, 2)
	cfg.mayflyRoundEvals = max(cfg.mayflyRoundEvals, 2*cfg.mayflyPop)
	return nil
}

// loadPair reads the dry and reference files at sampleRate, averaged to
// mono, and trims both to a common length of at most maxSeconds.
func loadPair(dryPath, refPath string, sampleRate int, maxSeconds float64) (dry, ref []float64, err error) {
	read := func(path string) ([]float64, error) {
		x, sr, err := wavio.ReadMono(path)
		if err != nil {
			return nil, err
		}
		return wavio.ResampleIfNeeded(x, sr, sampleRate)
	}
	if dry, err = read(dryPath); err != nil {
		return nil, nil, fmt.Errorf("dry: %w", err)
	}
	if ref, err = read(refPath); err != nil {
		return nil, nil, fmt.Errorf("reference: %w", err)
	}
	n := min(len(dry), len(ref))
	if maxSeconds > 0 {
		n = min(n, int(maxSeconds*float64(sampleRate)))
	}
	if n == 0 {
		return nil, nil, errors.New("empty audio")
	}
	return dry[:n], ref[:n], nil
}
