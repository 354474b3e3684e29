package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/cwbudde/algo-drive/cabinet"
	"github.com/cwbudde/algo-drive/drive"
	"github.com/cwbudde/algo-drive/internal/hostcli"
	"github.com/cwbudde/algo-drive/internal/wavio"
)

func main() {
	input := flag.String("input", "", "Input WAV path, played in a loop")
	presetPath := flag.String("preset", "", "Preset JSON path")
	sampleRate := flag.Int("sample-rate", 48000, "Device sample rate in Hz")
	irPath := flag.String("ir", "", "Optional cabinet IR WAV")
	irMix := flag.Float64("ir-mix", 1, "Cabinet wet proportion in [0,1]")
	bufferMS := flag.Int("buffer-ms", 40, "Device buffer length in milliseconds")
	verbose := flag.Bool("v", false, "Debug logging")
	params := hostcli.RegisterParamFlags(flag.CommandLine)
	flag.Parse()

	hostcli.SetupLogging(*verbose)
	if *input == "" {
		hostcli.Die(fmt.Errorf("missing -input"), "nothing to play")
	}
	pr, err := params.LoadPreset(*presetPath)
	if err != nil {
		hostcli.Die(err, "failed to load preset")
	}
	src, err := wavio.ReadStereo(*input)
	if err != nil {
		hostcli.Die(err, "failed to read input")
	}
	if err := src.Resample(*sampleRate); err != nil {
		hostcli.Die(err, "failed to resample input")
	}

	proc, err := drive.New(float64(*sampleRate), nil)
	if err != nil {
		hostcli.Die(err, "invalid sample rate")
	}
	if err := pr.Apply(proc); err != nil {
		hostcli.Die(err, "invalid preset")
	}
	var cab *cabinet.Convolver
	if *irPath != "" {
		cab = cabinet.New(*sampleRate)
		if err := cab.LoadWAV(*irPath); err != nil {
			hostcli.Die(err, "failed to load cabinet IR")
		}
		cab.SetMix(*irMix)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   *sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(*bufferMS) * time.Millisecond,
	})
	if err != nil {
		hostcli.Die(err, "failed to open audio device")
	}
	<-ready

	pl := newPlayer(proc, src.Left, src.Right, cab)
	out := ctx.NewPlayer(pl)
	out.Play()
	defer out.Close()

	logrus.WithFields(hostcli.Fields(pr)).WithField("input", *input).Info("playing")
	fmt.Fprintln(os.Stderr, "keys: b bypass, 0-4 oversampling, +/- drive, q quit")

	if err := readKeys(pl); err != nil {
		logrus.WithError(err).Error("keyboard")
	}
	logrus.WithField("frames", pl.frames.Load()).Info("stopped")
}

// readKeys puts the terminal in raw mode and feeds key presses to pl until
// it asks to stop.
func readKeys(pl *player) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() { _ = term.Restore(fd, old) }()

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return err
		}
		if n == 1 && pl.handleKey(buf[0]) {
			return nil
		}
	}
}
