// Package analysis measures how rendered audio differs from a reference and
// how a nonlinear stage treats a test tone.
package analysis

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics contains distance and similarity measurements between two audio signals.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`
	LevelDiffDB    float64 `json:"level_diff_db"`

	TimeNorm     float64 `json:"time_norm"`
	EnvelopeNorm float64 `json:"envelope_norm"`
	SpectralNorm float64 `json:"spectral_norm"`
	LevelNorm    float64 `json:"level_norm"`
	Dominant     string  `json:"dominant"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Score weights of the normalized components.
const (
	WeightTime     = 0.30
	WeightEnvelope = 0.20
	WeightSpectral = 0.35
	WeightLevel    = 0.15
)

const (
	envFrame     = 256
	envHop       = 128
	spectralSize = 4096
	minAligned   = 256
	maxLagSec    = 0.05
)

// Compare returns objective distance metrics and a combined score in [0,1].
// Both signals are RMS normalized before the shape metrics; the level
// difference is reported separately and weighted into the score.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		return m
	}

	refRMS := rms1(reference)
	candRMS := rms1(candidate)
	if refRMS <= 1e-12 || candRMS <= 1e-12 {
		return m
	}
	m.LevelDiffDB = math.Abs(linToDB(candRMS) - linToDB(refRMS))

	ref := normalizeRMS(reference, 0.1)
	cand := normalizeRMS(candidate, 0.1)

	maxLag := max(1, min(int(maxLagSec*float64(sampleRate)), len(ref)-1, len(cand)-1))
	lag := estimateLag(ref, cand, maxLag)
	m.LagSamples = lag

	refA, candA := alignByLag(ref, cand, lag)
	n := min(len(refA), len(candA))
	if n < minAligned {
		return m
	}
	refA = refA[:n]
	candA = candA[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(refA, candA)

	refEnv := rmsEnvelope(refA, envFrame, envHop)
	candEnv := rmsEnvelope(candA, envFrame, envHop)
	if envN := min(len(refEnv), len(candEnv)); envN > 0 {
		envDiff := make([]float64, envN)
		for i := 0; i < envN; i++ {
			envDiff[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms1(envDiff)
	}

	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)

	m.TimeNorm = clamp01(m.TimeRMSE / 0.25)
	m.EnvelopeNorm = clamp01(m.EnvelopeRMSEDB / 30.0)
	m.SpectralNorm = clamp01(m.SpectralRMSEDB / 30.0)
	m.LevelNorm = clamp01(m.LevelDiffDB / 20.0)
	parts := []struct {
		name string
		c    float64
	}{
		{"time", WeightTime * m.TimeNorm},
		{"envelope", WeightEnvelope * m.EnvelopeNorm},
		{"spectral", WeightSpectral * m.SpectralNorm},
		{"level", WeightLevel * m.LevelNorm},
	}
	var sum, top float64
	for _, p := range parts {
		sum += p.c
		if p.c > top {
			top = p.c
			m.Dominant = p.name
		}
	}
	m.Score = clamp01(sum)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))

	return m
}

func normalizeRMS(x []float64, target float64) []float64 {
	if len(x) == 0 {
		return x
	}
	r := rms1(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * g
	}
	return out
}

// estimateLag returns the shift of cand relative to ref in [-maxLag,maxLag]
// that maximizes their cross-correlation. A positive lag means ref is
// delayed against cand.
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	size := 1
	for size < len(ref)+len(cand) {
		size <<= 1
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return estimateLagDirect(ref, cand, maxLag)
	}
	a := make([]complex128, size)
	b := make([]complex128, size)
	for i, v := range ref {
		a[i] = complex(v, 0)
	}
	for i, v := range cand {
		b[i] = complex(v, 0)
	}
	if plan.Forward(a, a) != nil || plan.Forward(b, b) != nil {
		return estimateLagDirect(ref, cand, maxLag)
	}
	for i := range a {
		a[i] *= complex(real(b[i]), -imag(b[i]))
	}
	if plan.Inverse(a, a) != nil {
		return estimateLagDirect(ref, cand, maxLag)
	}

	// a[k] holds sum ref[i+k]*cand[i]; negative k wraps to the end.
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		idx := lag
		if idx < 0 {
			idx += size
		}
		if s := real(a[idx]); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func estimateLagDirect(ref []float64, cand []float64, maxLag int) int {
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := dotAtLag(ref, cand, lag); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rmse(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB compares STFT-averaged amplitude spectra in dB.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n < 512 {
		return 0
	}
	size := spectralSize
	for size > n {
		size >>= 1
	}
	s, err := NewSpectrum(size)
	if err != nil {
		return 0
	}
	ma := s.Average(a[:n], size/2)
	mb := s.Average(b[:n], size/2)
	bins := size / 2
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(ma[k]) - linToDB(mb[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
