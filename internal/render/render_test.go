package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-drive/cabinet"
	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/internal/modscript"
)

func tone(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/48000)
	}
	return x
}

func newProc(t *testing.T) *drive.Processor {
	t.Helper()
	p, err := drive.New(48000, nil)
	require.NoError(t, err)
	return p
}

func TestProcessMatchesFrameLoop(t *testing.T) {
	in := tone(1000)

	got, _, err := Process(newProc(t), in, nil, Options{})
	require.NoError(t, err)

	ref := newProc(t)
	for i, x := range in {
		y, _ := ref.ProcessFrame(x, 0, false)
		require.Equal(t, y, got[i], "frame %d", i)
	}
}

func TestProcessMonoCopiesLeft(t *testing.T) {
	in := tone(300)
	l, r, err := Process(newProc(t), in, in, Options{Mono: true})
	require.NoError(t, err)
	assert.Equal(t, l, r)
}

func TestProcessStereoUsesShortestInput(t *testing.T) {
	l, r, err := Process(newProc(t), tone(500), tone(200), Options{})
	require.NoError(t, err)
	assert.Len(t, l, 200)
	assert.Len(t, r, 200)
}

func TestProcessScriptDrivesModulation(t *testing.T) {
	s, err := modscript.LoadString(`function cv(t) return {drive = -5} end`, 48000)
	require.NoError(t, err)
	defer s.Close()

	p := newProc(t)
	p.Params().DriveModDepth.Set(1)
	_, _, err = Process(p, tone(256), nil, Options{Script: s})
	require.NoError(t, err)

	assert.Equal(t, -5.0, p.ModInputs().Drive.Get())
	assert.InDelta(t, 1.0, p.Coefficients().DriveGain, 1e-12)
}

func TestProcessScriptErrorStops(t *testing.T) {
	s, err := modscript.LoadString(`function cv(t) if t > 0 then error("late") end return 0 end`, 48000)
	require.NoError(t, err)
	defer s.Close()

	_, _, err = Process(newProc(t), tone(256), nil, Options{Script: s})
	require.Error(t, err)
}

func TestProcessAppliesCabinet(t *testing.T) {
	cab := cabinet.New(48000)
	require.NoError(t, cab.SetIR([]float64{0, 1}, nil))

	in := tone(256)
	dry, _, err := Process(newProc(t), in, nil, Options{})
	require.NoError(t, err)
	wetL, wetR, err := Process(newProc(t), in, nil, Options{Cabinet: cab})
	require.NoError(t, err)

	assert.InDelta(t, 0, wetL[0], 1e-12)
	for i := 1; i < len(in); i++ {
		require.InDelta(t, dry[i-1], wetL[i], 1e-9)
	}
	assert.Equal(t, wetL, wetR)
}
