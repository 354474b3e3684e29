// Package wavio reads and writes the WAV files used by the command line tools.
package wavio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ErrLengthMismatch is returned when left and right buffers differ in length.
var ErrLengthMismatch = errors.New("wavio: left/right length mismatch")

// Stereo is a decoded file split into channels. Right is nil for mono files.
type Stereo struct {
	Left       []float64
	Right      []float64
	SampleRate int
	Channels   int
}

// Mono reports whether the source had a single channel.
func (s *Stereo) Mono() bool { return s.Right == nil }

// Frames returns the number of frames.
func (s *Stereo) Frames() int { return len(s.Left) }

func decode(path string) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}
	return buf, nil
}

// ReadStereo reads a WAV file keeping the first two channels apart.
func ReadStereo(path string) (*Stereo, error) {
	buf, err := decode(path)
	if err != nil {
		return nil, err
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	s := &Stereo{
		Left:       make([]float64, frames),
		SampleRate: buf.Format.SampleRate,
		Channels:   ch,
	}
	if ch > 1 {
		s.Right = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		s.Left[i] = float64(buf.Data[i*ch])
		if ch > 1 {
			s.Right[i] = float64(buf.Data[i*ch+1])
		}
	}
	return s, nil
}

// ReadMono reads a WAV file and averages all channels.
func ReadMono(path string) ([]float64, int, error) {
	buf, err := decode(path)
	if err != nil {
		return nil, 0, err
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	return out, buf.Format.SampleRate, nil
}

// ResampleIfNeeded converts in from fromRate to toRate. Equal rates return
// in unchanged.
func ResampleIfNeeded(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate || len(in) == 0 {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// Resample converts both channels of s to rate in place.
func (s *Stereo) Resample(rate int) error {
	if s.SampleRate == rate {
		return nil
	}
	left, err := ResampleIfNeeded(s.Left, s.SampleRate, rate)
	if err != nil {
		return fmt.Errorf("resample left: %w", err)
	}
	var right []float64
	if s.Right != nil {
		right, err = ResampleIfNeeded(s.Right, s.SampleRate, rate)
		if err != nil {
			return fmt.Errorf("resample right: %w", err)
		}
		n := min(len(left), len(right))
		left, right = left[:n], right[:n]
	}
	s.Left, s.Right, s.SampleRate = left, right, rate
	return nil
}

// Interleave packs left and right into one float32 buffer.
func Interleave(left, right []float64) ([]float32, error) {
	if len(left) != len(right) {
		return nil, ErrLengthMismatch
	}
	out := make([]float32, 2*len(left))
	for i := range left {
		out[2*i] = float32(left[i])
		out[2*i+1] = float32(right[i])
	}
	return out, nil
}

// WriteStereo writes left and right as a 16-bit stereo file.
func WriteStereo(path string, left, right []float64, sampleRate int) error {
	data, err := Interleave(left, right)
	if err != nil {
		return err
	}
	return WriteInterleaved(path, data, 2, sampleRate)
}

// WriteMono writes data as a 16-bit mono file.
func WriteMono(path string, data []float64, sampleRate int) error {
	buf := make([]float32, len(data))
	for i, v := range data {
		buf[i] = float32(v)
	}
	return WriteInterleaved(path, buf, 1, sampleRate)
}

// WriteInterleaved writes an interleaved buffer with the given channel count.
func WriteInterleaved(path string, samples []float32, channels, sampleRate int) error {
	if channels < 1 {
		return fmt.Errorf("invalid channel count: %d", channels)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// Peak returns the largest absolute sample.
func Peak(data ...[]float64) float64 {
	var p float64
	for _, d := range data {
		for _, v := range d {
			p = math.Max(p, math.Abs(v))
		}
	}
	return p
}

// Normalize scales every buffer by the same factor so the joint peak equals
// target. Silent input is left untouched.
func Normalize(target float64, data ...[]float64) float64 {
	p := Peak(data...)
	if p == 0 {
		return 1
	}
	g := target / p
	for _, d := range data {
		for i := range d {
			d[i] *= g
		}
	}
	return g
}

// RMS returns the root mean square over all buffers.
func RMS(data ...[]float64) float64 {
	var sum float64
	var n int
	for _, d := range data {
		for _, v := range d {
			sum += v * v
		}
		n += len(d)
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
