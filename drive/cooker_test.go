package drive

import (
	"math"
	"math/rand"
	"testing"
)

func TestCombineStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20000; i++ {
		base := rng.Float64()*2 - 1
		depth := rng.Float64()*2 - 1
		cv := (rng.Float64()*2 - 1) * math.Pow(10, float64(rng.Intn(8)))
		got := Combine(base, depth, cv, -1, 1)
		if got < -1 || got > 1 {
			t.Fatalf("Combine(%g,%g,%g) = %g out of bounds", base, depth, cv, got)
		}
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name            string
		base, depth, cv float64
		lo, hi, want    float64
	}{
		{"no modulation", 0.3, 0, 10, -1, 1, 0.3},
		{"full swing up", 0, 1, 5, -1, 1, 1},
		{"half swing down", 0.5, 1, -2.5, -1, 1, 0},
		{"negative depth", 0, -0.5, 5, -1, 1, -0.5},
		{"clamped high", 0.8, 1, 10, -1, 1, 1},
		{"clamped low", -0.8, 1, -10, -1, 1, -1},
		{"nan collapses to lo", math.NaN(), 1, 0, -1, 1, -1},
		{"infinite cv clamps", 0, 1, math.Inf(1), -1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.base, tt.depth, tt.cv, tt.lo, tt.hi)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestModulateClampsDriveToUnitRange(t *testing.T) {
	p := DefaultParamValues()
	p.Drive = 0.1
	p.DriveModDepth = 1
	e := Modulate(p, ModValues{Drive: -5})
	if e.Drive != 0 {
		t.Fatalf("drive = %g, want 0", e.Drive)
	}
	p.Bass = -1
	p.BassModDepth = -1
	e = Modulate(p, ModValues{Bass: 5})
	if e.Bass != -1 {
		t.Fatalf("bass = %g, want -1", e.Bass)
	}
}

func TestCookDriveMapping(t *testing.T) {
	p := DefaultParamValues()
	p.Drive = 0
	if got := Cook(p, ModValues{}).DriveGain; math.Abs(got-1) > 1e-12 {
		t.Fatalf("drive 0: gain %g, want 1", got)
	}
	p.Drive = 1
	if got := Cook(p, ModValues{}).DriveGain; math.Abs(got-31.6227766) > 1e-6 {
		t.Fatalf("drive 1: gain %g, want 31.62", got)
	}
	p.Drive = 0.5
	if got := Cook(p, ModValues{}).DriveGain; math.Abs(got-5.6234132519) > 1e-6 {
		t.Fatalf("drive 0.5: gain %g, want 5.623", got)
	}
}

func TestCookBiasMapping(t *testing.T) {
	p := DefaultParamValues()
	if got := Cook(p, ModValues{}).BiasVolts; got != 0 {
		t.Fatalf("bias 0: %g V", got)
	}
	p.Bias = 1
	if got := Cook(p, ModValues{}).BiasVolts; got != 2.5 {
		t.Fatalf("bias 1: %g V, want 2.5", got)
	}
}

func TestCookShelfGains(t *testing.T) {
	tests := []struct {
		bass, treble float64
		lowDB        float64
		highDB       float64
	}{
		{0, 0, -20, -20},
		{1, 0, -11, -20},
		{-1, 1, -29, -11},
	}
	for _, tt := range tests {
		p := DefaultParamValues()
		p.Bass, p.Treble = tt.bass, tt.treble
		c := Cook(p, ModValues{})
		if got := 20 * math.Log10(c.LowGain); math.Abs(got-tt.lowDB) > 1e-9 {
			t.Fatalf("bass %g: low gain %g dB, want %g", tt.bass, got, tt.lowDB)
		}
		if got := 20 * math.Log10(c.HighGain); math.Abs(got-tt.highDB) > 1e-9 {
			t.Fatalf("treble %g: high gain %g dB, want %g", tt.treble, got, tt.highDB)
		}
	}
}

func TestCookIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		p := ParamValues{
			Bass:           rng.Float64()*2 - 1,
			Treble:         rng.Float64()*2 - 1,
			Drive:          rng.Float64(),
			Bias:           rng.Float64(),
			BassModDepth:   rng.Float64()*2 - 1,
			TrebleModDepth: rng.Float64()*2 - 1,
			DriveModDepth:  rng.Float64()*2 - 1,
		}
		m := ModValues{Bass: rng.NormFloat64() * 5, Treble: rng.NormFloat64() * 5, Drive: rng.NormFloat64() * 5}
		if a, b := Cook(p, m), Cook(p, m); a != b {
			t.Fatalf("cook not deterministic: %+v vs %+v", a, b)
		}
	}
}

func TestControlDividerFiresEvery64(t *testing.T) {
	d := controlDivider{division: ControlDivision}
	fired := 0
	for i := 1; i <= 64*10; i++ {
		if d.tick() {
			fired++
			if i%64 != 0 {
				t.Fatalf("fired on tick %d", i)
			}
		}
	}
	if fired != 10 {
		t.Fatalf("fired %d times, want 10", fired)
	}
}
