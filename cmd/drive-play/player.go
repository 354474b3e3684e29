package main

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-drive/cabinet"
	"github.com/cwbudde/algo-drive/drive"
)

const (
	blockFrames  = cabinet.DefaultPartSize
	bytesPerSamp = 4
	channels     = 2
)

// player streams a looped source through the processor as interleaved
// float32 little-endian stereo. Read runs on the audio goroutine; the
// control methods may be called from any goroutine.
type player struct {
	proc *drive.Processor
	cab  *cabinet.Convolver

	srcL, srcR []float64
	pos        int

	bypass atomic.Bool
	frames atomic.Int64

	inL, inR   []float64
	outL, outR []float64
	pending    []byte
}

func newPlayer(proc *drive.Processor, left, right []float64, cab *cabinet.Convolver) *player {
	return &player{
		proc: proc,
		cab:  cab,
		srcL: left,
		srcR: right,
		inL:  make([]float64, blockFrames),
		inR:  make([]float64, blockFrames),
		outL: make([]float64, blockFrames),
		outR: make([]float64, blockFrames),
	}
}

// Read implements io.Reader for the audio device.
func (p *player) Read(b []byte) (int, error) {
	n := 0
	for n < len(b) {
		if len(p.pending) == 0 {
			p.render()
		}
		c := copy(b[n:], p.pending)
		p.pending = p.pending[c:]
		n += c
	}
	return n, nil
}

func (p *player) render() {
	for i := range blockFrames {
		if len(p.srcL) == 0 {
			p.inL[i], p.inR[i] = 0, 0
			continue
		}
		p.inL[i] = p.srcL[p.pos]
		if p.srcR != nil {
			p.inR[i] = p.srcR[p.pos]
		}
		p.pos = (p.pos + 1) % len(p.srcL)
	}

	var srcR []float64
	if p.srcR != nil {
		srcR = p.inR
	}
	if p.bypass.Load() {
		for i := range blockFrames {
			r := p.inL[i]
			if srcR != nil {
				r = srcR[i]
			}
			p.outL[i], p.outR[i] = drive.Passthrough(p.inL[i], r)
		}
	} else {
		p.proc.ProcessBlock(p.outL, p.outR, p.inL, srcR)
		if p.cab != nil {
			p.cab.Process(p.outL, p.outR)
		}
	}
	p.frames.Add(blockFrames)

	buf := make([]byte, blockFrames*channels*bytesPerSamp)
	for i := range blockFrames {
		o := i * channels * bytesPerSamp
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(float32(p.outL[i])))
		binary.LittleEndian.PutUint32(buf[o+bytesPerSamp:], math.Float32bits(float32(p.outR[i])))
	}
	p.pending = buf
}

// handleKey applies one key press and reports whether playback should stop.
func (p *player) handleKey(k byte) bool {
	switch {
	case k == 'q' || k == 3:
		return true
	case k == 'b':
		on := !p.bypass.Load()
		p.bypass.Store(on)
		logrus.WithField("bypass", on).Info("toggle")
	case k >= '0' && k <= '9':
		idx := int(k - '0')
		if err := p.proc.RequestOversamplingIndex(idx); err != nil {
			logrus.WithError(err).Warn("ratio not changed")
			return false
		}
		logrus.WithField("os", drive.OversamplingLabels()[idx]).Info("oversampling")
	case k == '+' || k == '-':
		step := 0.05
		if k == '-' {
			step = -step
		}
		d := &p.proc.Params().Drive
		d.Set(d.Get() + step)
		logrus.WithField("drive", d.Get()).Info("drive")
	}
	return false
}
