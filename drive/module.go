package drive

// Module is the contract a host uses to drive a processing module.
type Module interface {
	ProcessFrame(xL, xR float64, rightConnected bool) (yL, yR float64)
	OnSampleRateChange(fs float64) error
	DataToJSON() ([]byte, error)
	DataFromJSON(data []byte) error
}

// Passthrough is the bypass routing: left in to left out, right in to right out.
func Passthrough(xL, xR float64) (yL, yR float64) {
	return xL, xR
}

// Input and output port names.
var (
	InputNames = []string{
		"Left Audio",
		"Right Audio",
		"Bass modulation",
		"Treble modulation",
		"Drive modulation",
	}
	OutputNames = []string{
		"Left Audio",
		"Right Audio",
	}
)
