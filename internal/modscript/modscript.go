// Package modscript runs Lua scripts that generate the modulation voltages
// of a drive processor.
//
// A script defines a global function cv(t) that receives the time in
// seconds and returns either a table with any of the fields bass, treble
// and drive, or up to three numbers in that order. Values are volts; absent
// fields read 0 V. The globals sample_rate and control_rate are set before
// the script runs.
//
//	function cv(t)
//	  return { drive = 5 * math.sin(2 * math.pi * 0.5 * t) }
//	end
package modscript

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cwbudde/algo-drive/drive"
)

// EntryPoint is the name of the function a script must define.
const EntryPoint = "cv"

// ErrNoEntryPoint is returned when a script does not define cv.
var ErrNoEntryPoint = errors.New("modscript: script does not define function " + EntryPoint)

// Script is a loaded CV script. It is not safe for concurrent use.
type Script struct {
	L  *lua.LState
	fn *lua.LFunction
}

// Load reads and runs the script at path.
func Load(path string, sampleRate float64) (*Script, error) {
	return load(sampleRate, func(L *lua.LState) error { return L.DoFile(path) })
}

// LoadString runs src as a script.
func LoadString(src string, sampleRate float64) (*Script, error) {
	return load(sampleRate, func(L *lua.LState) error { return L.DoString(src) })
}

func load(sampleRate float64, run func(*lua.LState) error) (*Script, error) {
	L := lua.NewState()
	L.SetGlobal("sample_rate", lua.LNumber(sampleRate))
	L.SetGlobal("control_rate", lua.LNumber(sampleRate/drive.ControlDivision))
	if err := run(L); err != nil {
		L.Close()
		return nil, fmt.Errorf("modscript: %w", err)
	}
	fn, ok := L.GetGlobal(EntryPoint).(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, ErrNoEntryPoint
	}
	return &Script{L: L, fn: fn}, nil
}

// SetContext bounds every later call by ctx.
func (s *Script) SetContext(ctx context.Context) {
	s.L.SetContext(ctx)
}

// Eval calls cv(t).
func (s *Script) Eval(t float64) (drive.ModValues, error) {
	top := s.L.GetTop()
	defer s.L.SetTop(top)

	if err := s.L.CallByParam(lua.P{Fn: s.fn, NRet: 3, Protect: true}, lua.LNumber(t)); err != nil {
		return drive.ModValues{}, fmt.Errorf("modscript: cv(%g): %w", t, err)
	}
	if tbl, ok := s.L.Get(-3).(*lua.LTable); ok {
		return drive.ModValues{
			Bass:   number(tbl.RawGetString("bass")),
			Treble: number(tbl.RawGetString("treble")),
			Drive:  number(tbl.RawGetString("drive")),
		}, nil
	}
	return drive.ModValues{
		Bass:   number(s.L.Get(-3)),
		Treble: number(s.L.Get(-2)),
		Drive:  number(s.L.Get(-1)),
	}, nil
}

// Apply evaluates cv(t) and stores the result in m.
func (s *Script) Apply(m *drive.ModInputs, t float64) error {
	v, err := s.Eval(t)
	if err != nil {
		return err
	}
	m.SetValues(v)
	return nil
}

// Close releases the interpreter.
func (s *Script) Close() {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}

func number(v lua.LValue) float64 {
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}
