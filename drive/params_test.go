package drive

import (
	"math"
	"sync"
	"testing"
)

func TestNewParamsDefaults(t *testing.T) {
	p := NewParams()
	if got, want := p.Values(), DefaultParamValues(); got != want {
		t.Fatalf("values = %+v, want %+v", got, want)
	}
	if p.Drive.Get() != 0.5 {
		t.Fatalf("drive default = %g, want 0.5", p.Drive.Get())
	}
}

func TestParamSetClamps(t *testing.T) {
	p := NewParams()
	p.Drive.Set(3)
	if p.Drive.Get() != 1 {
		t.Fatalf("drive = %g, want 1", p.Drive.Get())
	}
	p.Bass.Set(-7)
	if p.Bass.Get() != -1 {
		t.Fatalf("bass = %g, want -1", p.Bass.Get())
	}
	p.Bias.Set(math.NaN())
	if p.Bias.Get() != 0 {
		t.Fatalf("bias = %g, want default 0", p.Bias.Get())
	}
}

func TestParamsLookupAndReset(t *testing.T) {
	p := NewParams()
	for _, spec := range Specs() {
		param, ok := p.Lookup(spec.Key)
		if !ok {
			t.Fatalf("lookup %q failed", spec.Key)
		}
		if param != p.ByID(spec.ID) {
			t.Fatalf("lookup %q returned wrong param", spec.Key)
		}
		param.Set(spec.Max)
	}
	if _, ok := p.Lookup("DRIVE"); !ok {
		t.Fatalf("lookup is case sensitive")
	}
	if _, ok := p.Lookup("volume"); ok {
		t.Fatalf("unknown key found")
	}
	p.ResetDefaults()
	if got, want := p.Values(), DefaultParamValues(); got != want {
		t.Fatalf("after reset %+v, want %+v", got, want)
	}
}

func TestSpecsRangesAndDefaults(t *testing.T) {
	specs := Specs()
	if len(specs) != int(NumParams) {
		t.Fatalf("got %d specs", len(specs))
	}
	for _, s := range specs {
		if s.Default < s.Min || s.Default > s.Max {
			t.Fatalf("%s default %g outside [%g,%g]", s.Key, s.Default, s.Min, s.Max)
		}
	}
	if s := specs[ParamDrive]; s.Min != 0 || s.Max != 1 || s.Default != 0.5 {
		t.Fatalf("drive spec = %+v", s)
	}
	specs[0].Min = 42
	if Specs()[0].Min == 42 {
		t.Fatalf("Specs returned shared storage")
	}
}

func TestModInputsRejectNonFinite(t *testing.T) {
	var m ModInputs
	m.Drive.Set(math.Inf(1))
	m.Bass.Set(3)
	if got := m.Values(); got.Drive != 0 || got.Bass != 3 {
		t.Fatalf("values = %+v", got)
	}
	m.Reset()
	if got := m.Values(); got != (ModValues{}) {
		t.Fatalf("after reset %+v", got)
	}
}

func TestParamsConcurrentAccess(t *testing.T) {
	p := NewParams()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			p.Drive.Set(float64(i%100) / 100)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			v := p.Values().Drive
			if v < 0 || v > 1 {
				t.Errorf("drive %g out of range", v)
				return
			}
		}
	}()
	wg.Wait()
}

func TestParamValuesField(t *testing.T) {
	v := DefaultParamValues()
	for id := ParamID(0); id < NumParams; id++ {
		f := v.Field(id)
		if f == nil {
			t.Fatalf("Field(%d) = nil", id)
		}
		*f = float64(id) + 0.5
	}
	if v.Bass != 0.5 || v.Drive != 2.5 || v.DriveModDepth != 6.5 {
		t.Fatalf("fields not addressed in ParamID order: %+v", v)
	}
	if v.Field(NumParams) != nil {
		t.Fatalf("Field(NumParams) should be nil")
	}
}
