package drive

import (
	"encoding/json"
	"fmt"
)

// StateVersion is written into every persisted State.
const StateVersion = 1

// State is the persisted module data.
type State struct {
	Version           int `json:"version"`
	OversamplingIndex int `json:"osIdx"`
}

type stateJSON struct {
	Version           int  `json:"version"`
	OversamplingIndex *int `json:"osIdx"`
}

// ParseState decodes persisted data. A missing osIdx yields
// DefaultOversamplingIndex and an out of range one is clamped.
func ParseState(data []byte) (State, error) {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("drive: decode state: %w", err)
	}
	st := State{Version: raw.Version, OversamplingIndex: DefaultOversamplingIndex}
	if st.Version == 0 {
		st.Version = StateVersion
	}
	if raw.OversamplingIndex != nil {
		st.OversamplingIndex = ClampOversamplingIndex(*raw.OversamplingIndex)
	}
	return st, nil
}

// State returns the data to persist.
func (p *Processor) State() State {
	return State{Version: StateVersion, OversamplingIndex: p.osIdx}
}

// SetState applies persisted data. The index is clamped.
func (p *Processor) SetState(st State) {
	idx := ClampOversamplingIndex(st.OversamplingIndex)
	if idx == p.osIdx {
		return
	}
	p.osIdx = idx
	p.rebuild()
}

// DataToJSON encodes State.
func (p *Processor) DataToJSON() ([]byte, error) {
	return json.Marshal(p.State())
}

// DataFromJSON decodes and applies persisted data.
func (p *Processor) DataFromJSON(data []byte) error {
	st, err := ParseState(data)
	if err != nil {
		return err
	}
	p.SetState(st)
	return nil
}
