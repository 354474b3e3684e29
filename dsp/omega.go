package dsp

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// WrightOmega3 approximates the Wright omega function with a piecewise
// cubic fit. Absolute error stays below about 1e-2.
func WrightOmega3(x float64) float64 {
	const (
		x1 = -3.341459552768620
		x2 = 8.0
		a  = -1.314293149877800e-3
		b  = 4.775931364975583e-2
		c  = 3.631952663804445e-1
		d  = 6.313183464296682e-1
	)
	switch {
	case x < x1:
		return 0
	case x < x2:
		return d + x*(c+x*(b+x*a))
	}
	return x - math.Log(x)
}

// WrightOmega4 refines WrightOmega3 with one Newton-Raphson step on
// w + log(w) = x.
func WrightOmega4(x float64) float64 {
	y := WrightOmega3(x)
	return y - (y-approx.FastExp(x-y))/(y+1)
}
