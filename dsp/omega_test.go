package dsp

import (
	"math"
	"testing"
)

// refOmega solves w + log(w) = x with Halley iterations on exact math.
func refOmega(x float64) float64 {
	w := 1.0
	if x > 1 {
		w = x - math.Log(x)
	} else if x < -1 {
		w = math.Exp(x)
	}
	for range 50 {
		f := w + math.Log(w) - x
		fp := 1 + 1/w
		fpp := -1 / (w * w)
		step := 2 * f * fp / (2*fp*fp - f*fpp)
		w -= step
		if w <= 0 {
			w = 1e-300
		}
		if math.Abs(step) < 1e-15*math.Max(1, w) {
			break
		}
	}
	return w
}

func TestWrightOmega4MatchesReference(t *testing.T) {
	for x := -30.0; x <= 100.0; x += 0.37 {
		got := WrightOmega4(x)
		want := refOmega(x)
		// Just above the cubic's lower break point the single Newton step
		// lands on exp(x), a few percent high on a tiny value.
		tol := 1e-3 + 3e-2*want
		if math.Abs(got-want) > tol {
			t.Fatalf("omega4(%.2f) = %.9g, want %.9g", x, got, want)
		}
	}
}

func TestWrightOmega4NearLowerBreakPoint(t *testing.T) {
	for x := -3.5; x <= -3.0; x += 0.01 {
		got, want := WrightOmega4(x), refOmega(x)
		if math.Abs(got-want) > 2e-3 {
			t.Fatalf("omega4(%.2f) = %.9g, want %.9g", x, got, want)
		}
	}
}

func TestWrightOmega3Branches(t *testing.T) {
	if got := WrightOmega3(-10); got != 0 {
		t.Fatalf("omega3(-10) = %g, want 0", got)
	}
	if got, want := WrightOmega3(20), 20-math.Log(20); got != want {
		t.Fatalf("omega3(20) = %g, want %g", got, want)
	}
	// The cubic meets the asymptote closely at the upper break point.
	lo := WrightOmega3(math.Nextafter(8, 0))
	hi := WrightOmega3(8)
	if math.Abs(lo-hi) > 0.05 {
		t.Fatalf("discontinuity at 8: %g vs %g", lo, hi)
	}
}

func BenchmarkWrightOmega4(b *testing.B) {
	x := 0.0
	for i := 0; i < b.N; i++ {
		x += WrightOmega4(float64(i%64) - 16)
	}
	_ = x
}
