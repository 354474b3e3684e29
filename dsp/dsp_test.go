package dsp

import (
	"math"
	"testing"
)

// openCircuit terminates a tree with b = a.
func openCircuitStep(root Port) {
	root.Incident(root.Reflected())
}

func TestCapacitorPortResistance(t *testing.T) {
	c := NewCapacitor(47e-9, 96000)
	want := 1 / (2 * 47e-9 * 96000)
	if math.Abs(c.Resistance()-want) > 1e-9 {
		t.Fatalf("resistance = %g, want %g", c.Resistance(), want)
	}
}

func TestParallelResistance(t *testing.T) {
	r1 := NewResistiveVoltageSource(1000)
	r2 := NewResistiveVoltageSource(3000)
	p := NewParallel(r1, r2)
	if got, want := p.Resistance(), 750.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("parallel resistance = %g, want %g", got, want)
	}
}

func TestRCStepResponse(t *testing.T) {
	const (
		r  = 4700.0
		c  = 47e-9
		fs = 192000.0
	)
	vs := NewResistiveVoltageSource(r)
	cp := NewCapacitor(c, fs)
	p := NewParallel(vs, cp)

	tau := r * c
	nTau := int(math.Round(tau * fs))
	var atTau float64
	for n := 0; n < 10*nTau; n++ {
		vs.SetVoltage(1)
		openCircuitStep(p)
		if n == nTau-1 {
			atTau = cp.Voltage()
		}
	}
	if math.Abs(atTau-(1-math.Exp(-1))) > 0.02 {
		t.Fatalf("voltage at one time constant = %.4f, want ~0.632", atTau)
	}
	if v := cp.Voltage(); math.Abs(v-1) > 1e-3 {
		t.Fatalf("settled voltage = %.6f, want 1", v)
	}
	if v := p.Voltage(); math.Abs(v-cp.Voltage()) > 1e-12 {
		t.Fatalf("parallel voltage %.9f differs from capacitor %.9f", v, cp.Voltage())
	}
}

func TestDiodePairSmallSignalIsNearlyOpen(t *testing.T) {
	d := NewDiodePair(120, 2.52e-9, 0.02585)
	d.Incident(0)
	if d.Reflected() != 0 {
		t.Fatalf("zero incident reflected %g", d.Reflected())
	}
	d.Incident(1e-3)
	if got := d.Reflected(); math.Abs(got-1e-3) > 1e-5 {
		t.Fatalf("small-signal reflected = %g, want ~1e-3", got)
	}
}

func TestDiodePairClampsAndIsOdd(t *testing.T) {
	d := NewDiodePair(120, 2.52e-9, 0.02585)
	for _, a := range []float64{0.5, 2, 10, 100, 1000} {
		d.Incident(a)
		bPos := d.Reflected()
		vPos := d.Voltage()
		d.Incident(-a)
		bNeg := d.Reflected()
		if math.Abs(bPos+bNeg) > 1e-9*math.Max(1, a) {
			t.Fatalf("a=%g: reflected not odd: %g vs %g", a, bPos, bNeg)
		}
		if vPos <= 0 || vPos > 1 {
			t.Fatalf("a=%g: diode voltage %g outside (0,1]", a, vPos)
		}
	}
}

func TestDiodePairVoltageIsMonotonic(t *testing.T) {
	d := NewDiodePair(120, 2.52e-9, 0.02585)
	prev := math.Inf(-1)
	for a := -50.0; a <= 50.0; a += 0.25 {
		d.Incident(a)
		v := d.Voltage()
		if v < prev-5e-3 {
			t.Fatalf("voltage decreased at a=%g: %g < %g", a, v, prev)
		}
		prev = v
	}
}
