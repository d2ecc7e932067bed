package receiver

import "fmt"

// Snapshot is an immutable view of the receiver for concurrent readers
// (status displays, web handlers). Only the owning consumer may call
// the mutating surface.
type Snapshot struct {
	State      string  `json:"state"`
	Ready      bool    `json:"ready"`
	Threshold  int     `json:"threshold"`
	Swing      int     `json:"swing"`
	Calibrated bool    `json:"calibrated"`
	SampleRate float64 `json:"sampleRate"`
	Edges      int     `json:"edges"`
}

// Snapshot captures the current receiver state.
func (r *Receiver) Snapshot() Snapshot {
	return Snapshot{
		State:      r.s.state.String(),
		Ready:      r.ready,
		Threshold:  r.est.Threshold(),
		Swing:      r.est.Swing(),
		Calibrated: r.est.Calibrated(),
		SampleRate: r.est.SampleRate(),
		Edges:      len(r.s.edges),
	}
}

// Status returns a one-line human-readable summary.
func (r *Receiver) Status() string {
	if !r.ready {
		return fmt.Sprintf("not ready (threshold %d, swing %d)", r.est.Threshold(), r.est.Swing())
	}

	switch r.s.state {
	case Idle:
		if !r.est.Confident() {
			return fmt.Sprintf("idle, low contrast (threshold %d, swing %d)", r.est.Threshold(), r.est.Swing())
		}
		return fmt.Sprintf("idle (threshold %d, swing %d, %.1f samples/s)", r.est.Threshold(), r.est.Swing(), r.est.SampleRate())
	case WaitForLow:
		return "start marker detected, waiting for data"
	case Receiving:
		return fmt.Sprintf("receiving, %d edges", len(r.s.edges))
	case Done:
		return "message complete"
	}
	return "unknown"
}
