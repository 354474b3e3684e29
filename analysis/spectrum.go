package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// ErrFFTSize is returned for FFT sizes that are not a power of two >= 16.
var ErrFFTSize = errors.New("analysis: fft size must be a power of two >= 16")

// Spectrum computes windowed magnitude spectra of a fixed size. It reuses
// its buffers and is not safe for concurrent use.
type Spectrum struct {
	size  int
	plan  *algofft.Plan[complex128]
	win   []float64
	gain  float64
	frame []float64
	in    []complex128
	out   []complex128
	mag   []float64
}

// NewSpectrum creates an analyzer with a Hann window.
func NewSpectrum(size int) (*Spectrum, error) {
	return NewSpectrumWindow(size, window.TypeHann)
}

// NewSpectrumWindow creates an analyzer with the given window type.
func NewSpectrumWindow(size int, wt window.Type) (*Spectrum, error) {
	if size < 16 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrFFTSize, size)
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	win := window.Generate(wt, size)
	var sum float64
	for _, w := range win {
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("analysis: degenerate window")
	}
	return &Spectrum{
		size:  size,
		plan:  plan,
		win:   win,
		gain:  2 / sum,
		frame: make([]float64, size),
		in:    make([]complex128, size),
		out:   make([]complex128, size),
		mag:   make([]float64, size/2+1),
	}, nil
}

// Size returns the FFT length.
func (s *Spectrum) Size() int { return s.size }

// BinHz returns the bin spacing at sampleRate.
func (s *Spectrum) BinHz(sampleRate float64) float64 {
	return sampleRate / float64(s.size)
}

// Magnitude returns the amplitude spectrum of the first Size samples of x,
// zero padded when shorter. A sine of amplitude A that lands on a bin reads
// A. The returned slice is reused by the next call.
func (s *Spectrum) Magnitude(x []float64) []float64 {
	n := min(len(x), s.size)
	clear(s.frame)
	copy(s.frame, x[:n])
	vecmath.MulBlockInPlace(s.frame, s.win)
	for i, v := range s.frame {
		s.in[i] = complex(v, 0)
	}
	if err := s.plan.Forward(s.out, s.in); err != nil {
		clear(s.mag)
		return s.mag
	}
	for k := range s.mag {
		s.mag[k] = cmplx.Abs(s.out[k]) * s.gain
	}
	s.mag[0] *= 0.5
	s.mag[len(s.mag)-1] *= 0.5
	return s.mag
}

// Average returns the mean amplitude spectrum over frames spaced hop
// samples apart. Signals shorter than Size yield one zero-padded frame.
func (s *Spectrum) Average(x []float64, hop int) []float64 {
	if hop <= 0 {
		hop = s.size / 2
	}
	avg := make([]float64, s.size/2+1)
	frames := 0
	for pos := 0; pos+s.size <= len(x); pos += hop {
		vecmath.AddBlockInPlace(avg, s.Magnitude(x[pos:]))
		frames++
	}
	if frames == 0 {
		copy(avg, s.Magnitude(x))
		return avg
	}
	vecmath.ScaleBlock(avg, avg, 1/float64(frames))
	return avg
}

// Power returns the square of the averaged amplitude spectrum.
func (s *Spectrum) Power(x []float64, hop int) []float64 {
	avg := s.Average(x, hop)
	vecmath.MulBlockInPlace(avg, avg)
	return avg
}

// ToneReport describes how a sine test tone came out of a nonlinear system.
type ToneReport struct {
	FundamentalHz float64   `json:"fundamental_hz"`
	FundamentalDB float64   `json:"fundamental_db"`
	HarmonicsDB   []float64 `json:"harmonics_db"`
	THD           float64   `json:"thd"`
	AliasDB       float64   `json:"alias_db"`
}

// AnalyzeTone measures harmonic levels (2nd upwards, relative to the
// fundamental) and the energy of everything that is neither a harmonic nor
// DC, relative to the fundamental. For a band-limited nonlinearity the
// latter is aliasing plus noise.
func AnalyzeTone(x []float64, sampleRate, fundamentalHz float64, maxHarmonics int) (ToneReport, error) {
	r := ToneReport{FundamentalHz: fundamentalHz}
	if sampleRate <= 0 || fundamentalHz <= 0 || fundamentalHz >= sampleRate/2 {
		return r, fmt.Errorf("analysis: fundamental %g Hz invalid at %g Hz", fundamentalHz, sampleRate)
	}
	size := 1 << 14
	for size > 1024 && size > len(x) {
		size >>= 1
	}
	s, err := NewSpectrumWindow(size, window.TypeBlackmanHarris4Term)
	if err != nil {
		return r, err
	}
	pow := s.Power(x, size/2)
	binHz := s.BinHz(sampleRate)
	const capture = 6

	harmonic := make([]bool, len(pow))
	mark := func(center int) float64 {
		var e float64
		for k := center - capture; k <= center+capture; k++ {
			if k >= 0 && k < len(pow) {
				harmonic[k] = true
				e += pow[k]
			}
		}
		return e
	}
	mark(0)
	fund := mark(int(math.Round(fundamentalHz / binHz)))
	if fund <= 0 {
		return r, fmt.Errorf("analysis: no energy at %g Hz", fundamentalHz)
	}
	r.FundamentalDB = powToDB(fund)

	var hsum float64
	for h := 2; ; h++ {
		f := float64(h) * fundamentalHz
		if f >= sampleRate/2 || (maxHarmonics > 0 && h > maxHarmonics) {
			break
		}
		e := mark(int(math.Round(f / binHz)))
		hsum += e
		r.HarmonicsDB = append(r.HarmonicsDB, powToDB(e/fund))
	}
	// Mark harmonics above the requested count too so they do not count
	// as aliasing.
	for h := len(r.HarmonicsDB) + 2; float64(h)*fundamentalHz < sampleRate/2; h++ {
		mark(int(math.Round(float64(h) * fundamentalHz / binHz)))
	}
	r.THD = math.Sqrt(hsum / fund)

	var rest float64
	for k, p := range pow {
		if !harmonic[k] {
			rest += p
		}
	}
	r.AliasDB = powToDB(rest / fund)
	return r, nil
}

func powToDB(p float64) float64 {
	if p < 1e-30 {
		p = 1e-30
	}
	return 10 * math.Log10(p)
}
