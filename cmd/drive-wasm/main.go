//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-drive/cabinet"
	"github.com/cwbudde/algo-drive/drive"
)

const maxFrames = cabinet.DefaultPartSize

var (
	proc   *drive.Processor
	cab    *cabinet.Convolver
	ioBuf  []float32
	cabL   []float64
	cabR   []float64
	hasCab bool
)

func main() {
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmSetParam", js.FuncOf(wasmSetParam))
	js.Global().Set("wasmSetModInput", js.FuncOf(wasmSetModInput))
	js.Global().Set("wasmSetOversampling", js.FuncOf(wasmSetOversampling))
	js.Global().Set("wasmLoadIR", js.FuncOf(wasmLoadIR))
	js.Global().Set("wasmInputBuffer", js.FuncOf(wasmInputBuffer))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM drive module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return false
	}
	sampleRate := args[0].Int()
	p, err := drive.New(float64(sampleRate), nil)
	if err != nil {
		println("init failed:", err.Error())
		return false
	}
	proc = p
	cab = cabinet.New(sampleRate)
	hasCab = false
	ioBuf = make([]float32, maxFrames*2)
	cabL = make([]float64, maxFrames)
	cabR = make([]float64, maxFrames)
	println("Drive initialized at", sampleRate, "Hz")
	return true
}

// wasmSetParam(key, value) sets a parameter by key; unknown keys return false.
func wasmSetParam(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || proc == nil {
		return false
	}
	param, ok := proc.Params().Lookup(args[0].String())
	if !ok {
		return false
	}
	param.Set(args[1].Float())
	return true
}

// wasmSetModInput(bass, treble, drive) sets the three modulation voltages.
func wasmSetModInput(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 || proc == nil {
		return nil
	}
	proc.ModInputs().SetValues(drive.ModValues{
		Bass:   args[0].Float(),
		Treble: args[1].Float(),
		Drive:  args[2].Float(),
	})
	return nil
}

func wasmSetOversampling(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || proc == nil {
		return false
	}
	return proc.RequestOversamplingIndex(args[0].Int()) == nil
}

// wasmLoadIR(Float32Array, mix) installs a mono cabinet impulse response at
// the init sample rate. An empty array removes the cabinet.
func wasmLoadIR(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || cab == nil {
		return false
	}
	arr := args[0]
	n := arr.Get("length").Int()
	if n == 0 {
		hasCab = false
		return true
	}
	ir := make([]float64, n)
	for i := range ir {
		ir[i] = arr.Index(i).Float()
	}
	if err := cab.SetIR(ir, nil); err != nil {
		println("IR rejected:", err.Error())
		return false
	}
	if len(args) > 1 {
		cab.SetMix(args[1].Float())
	}
	hasCab = true
	println("IR loaded:", n, "taps")
	return true
}

// wasmInputBuffer returns the address of the interleaved stereo buffer JS
// fills before each wasmProcessBlock call.
func wasmInputBuffer(this js.Value, args []js.Value) interface{} {
	if len(ioBuf) == 0 {
		return 0
	}
	return js.ValueOf(uintptr(unsafe.Pointer(&ioBuf[0])))
}

// wasmProcessBlock(n) processes n frames of the shared buffer in place and
// returns its address.
func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || proc == nil {
		return 0
	}
	numFrames := min(max(args[0].Int(), 0), maxFrames)
	buf := ioBuf[:numFrames*2]
	proc.ProcessInterleaved(buf, 2)

	if hasCab {
		for i := 0; i < numFrames; i++ {
			cabL[i] = float64(buf[2*i])
			cabR[i] = float64(buf[2*i+1])
		}
		cab.Process(cabL[:numFrames], cabR[:numFrames])
		for i := 0; i < numFrames; i++ {
			buf[2*i] = float32(cabL[i])
			buf[2*i+1] = float32(cabR[i])
		}
	}
	return js.ValueOf(uintptr(unsafe.Pointer(&ioBuf[0])))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
