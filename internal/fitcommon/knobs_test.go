package fitcommon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-drive/drive"
)

func TestParseKnobsDefault(t *testing.T) {
	knobs, err := ParseKnobs("")
	require.NoError(t, err)
	require.Len(t, knobs, 4)
	assert.Equal(t, drive.ParamBass, knobs[0].ID)
	assert.Equal(t, "bias", knobs[3].Name)
	assert.Equal(t, -1.0, knobs[0].Min)
	assert.Equal(t, 1.0, knobs[2].Max)
}

func TestParseKnobsListAndErrors(t *testing.T) {
	knobs, err := ParseKnobs(" Drive , driveModDepth,drive")
	require.NoError(t, err)
	require.Len(t, knobs, 2)
	assert.Equal(t, drive.ParamDrive, knobs[0].ID)
	assert.Equal(t, drive.ParamDriveModDepth, knobs[1].ID)

	_, err = ParseKnobs("drive,volume")
	require.Error(t, err)
	_, err = ParseKnobs(" , ")
	require.Error(t, err)
}

func TestNormalizedRoundTrip(t *testing.T) {
	knobs, err := ParseKnobs("")
	require.NoError(t, err)

	c := FromNormalized([]float64{0, 0.5, 1, 0.25}, knobs)
	assert.Equal(t, []float64{-1, 0, 1, 0.25}, c.Vals)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.25}, c.Normalized(knobs), 1e-12)

	c = FromNormalized([]float64{-3, 7}, knobs)
	assert.Equal(t, []float64{-1, 1, 0, 0}, c.Vals)
}

func TestApplyKeepsUntouchedParams(t *testing.T) {
	knobs, err := ParseKnobs("drive,bias")
	require.NoError(t, err)
	base := drive.DefaultParamValues()
	base.Treble = 0.3

	got := Candidate{Vals: []float64{0.9, 2}}.Apply(base, knobs)
	assert.Equal(t, 0.9, got.Drive)
	assert.Equal(t, 1.0, got.Bias)
	assert.Equal(t, 0.3, got.Treble)
	assert.Equal(t, 0.5, base.Drive)
}

func TestInitCandidateAndMaps(t *testing.T) {
	knobs, err := ParseKnobs("")
	require.NoError(t, err)
	base := drive.DefaultParamValues()
	base.Bias = 0.2

	c := InitCandidate(knobs, base)
	assert.Equal(t, []float64{0, 0, 0.5, 0.2}, c.Vals)

	m := c.Map(knobs)
	assert.Equal(t, 0.2, m["bias"])

	resumed, ok := FromMap(map[string]float64{"drive": 0.75, "other": 3}, knobs, c)
	require.True(t, ok)
	assert.Equal(t, 0.75, resumed.Vals[2])
	assert.Equal(t, 0.5, c.Vals[2], "fallback must not be modified")

	_, ok = FromMap(map[string]float64{"other": 1}, knobs, c)
	assert.False(t, ok)
}

func TestParseWorkers(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: "8", want: 8},
		{in: "auto", want: 0},
		{in: " AUTO ", want: 0},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-2", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseWorkers(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseWorkers(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseWorkers(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
	assert.GreaterOrEqual(t, ResolveWorkers(0), 1)
	assert.Equal(t, 3, ResolveWorkers(3))
}
