package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareIdenticalSignalsHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 1.5, 0.7)
	m := Compare(x, x, sr)
	assert.Less(t, m.Score, 0.05)
	assert.Greater(t, m.Similarity, 0.85)
	assert.Equal(t, 0, m.LagSamples)
	assert.InDelta(t, 0, m.LevelDiffDB, 1e-9)
}

func TestCompareDifferentSignalsHasHigherDistance(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 261.63, 1.8, 0.8)
	b := makeDecaySine(sr, 330.0, 0.8, 0.25)
	m := Compare(a, b, sr)
	assert.Greater(t, m.Score, 0.25)
}

func TestCompareReportsLevelDifference(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 440, 1, 0.5)
	b := make([]float64, len(a))
	for i := range a {
		b[i] = 0.5 * a[i]
	}
	m := Compare(a, b, sr)
	assert.InDelta(t, 6.02, m.LevelDiffDB, 0.01)
	assert.Less(t, m.TimeRMSE, 1e-9)

	same := Compare(a, a, sr)
	assert.Greater(t, m.Score, same.Score)
}

func TestCompareDegenerateInputs(t *testing.T) {
	m := Compare(nil, []float64{1}, 48000)
	assert.Equal(t, 1.0, m.Score)
	m = Compare(make([]float64, 1000), make([]float64, 1000), 48000)
	assert.Equal(t, 1.0, m.Score)
	m = Compare([]float64{1, 2}, []float64{1, 2}, 0)
	assert.Equal(t, 1.0, m.Score)
}

func TestEstimateLagFindsPositiveShift(t *testing.T) {
	const (
		n      = 8192
		shift  = 237
		maxLag = 600
	)
	ref := randomSignal(n, 7)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	require.Equal(t, shift, estimateLag(ref, cand, maxLag))
}

func TestEstimateLagFindsNegativeShift(t *testing.T) {
	const (
		n      = 8192
		shift  = -191
		maxLag = 600
	)
	ref := randomSignal(n, 11)
	cand := make([]float64, n)
	copy(cand[-shift:], ref)

	require.Equal(t, shift, estimateLag(ref, cand, maxLag))
}

func TestEstimateLagFFTMatchesDirect(t *testing.T) {
	const (
		n      = 16000
		shift  = 443
		maxLag = 1000
	)
	ref := randomSignal(n, 23)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	require.Equal(t, estimateLagDirect(ref, cand, maxLag), estimateLag(ref, cand, maxLag))
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := max(1, int(float64(sr)*durationSec))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sr)
		out[i] = math.Exp(-t/decaySec) * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func BenchmarkCompare(b *testing.B) {
	const n = 48000 * 3
	ref := makeDecaySine(48000, 220, 3, 1)
	cand := makeDecaySine(48000, 221, 3, 0.9)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref[:n], cand[:n], 48000)
	}
}

func TestCompareDominantComponent(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 440, 1, 0.5)
	b := make([]float64, len(a))
	for i := range a {
		b[i] = 0.1 * a[i]
	}
	m := Compare(a, b, sr)
	assert.Equal(t, "level", m.Dominant)
	assert.InDelta(t, WeightLevel*m.LevelNorm, m.Score, 1e-6)

	m = Compare(a, a, sr)
	assert.Empty(t, m.Dominant)
}
