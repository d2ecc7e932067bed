// Package signal holds the shared definitions of the optical link:
// binary levels, timestamped brightness samples, recorded edges and the
// wire-level timing constants both ends must agree on.
package signal

import "time"

// Level is the binary state of the light channel.
type Level int

const (
	// Low indicates light off / logical 0.
	Low Level = 0
	// High indicates light on / logical 1.
	High Level = 1
)

// Bit returns the bit value of the level.
func (l Level) Bit() byte {
	if l == High {
		return 1
	}
	return 0
}

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Sample is one brightness measurement delivered by the sensor pipeline.
type Sample struct {
	// Timestamp indicates the time the sample was captured.
	Timestamp time.Duration
	// Brightness is the measured luminance on a 0-255 scale.
	Brightness int
}

// Edge is a recorded level transition, timestamped relative to the
// frame origin (the preamble-to-data transition).
type Edge struct {
	// Timestamp is the time of the transition relative to the frame origin.
	Timestamp time.Duration
	// Level is the level the signal changed to.
	Level Level
}

// Wire timing of the link. The receiver recovers bit boundaries purely
// from these durations, so they must match on both ends.
const (
	// BitPeriod is the duration of one data bit.
	BitPeriod = 200 * time.Millisecond
	// StartDuration is the continuous-high preamble framing a message.
	StartDuration = 800 * time.Millisecond
	// StopDuration is the continuous-low postamble ending a message.
	StopDuration = 900 * time.Millisecond

	// StartTrigger is the high-run length that arms the receiver.
	// Must be reachable before StartDuration completes.
	StartTrigger = 480 * time.Millisecond
	// StopTrigger is the low-run length that ends reception. The line
	// code bounds data zero runs to 3 bits (600ms), so 650ms can only
	// occur inside the postamble.
	StopTrigger = 650 * time.Millisecond

	// MinRun is the noise floor: transitions closing a shorter run are
	// discarded as sensor noise.
	MinRun = 80 * time.Millisecond

	// ReceiveTimeout forces a best-effort decode of a session that
	// never frames a postamble.
	ReceiveTimeout = 60 * time.Second
)

// Brightness scale constants shared by threshold estimation.
const (
	// BrightnessMax is the upper bound of the sample scale.
	BrightnessMax = 255
	// DefaultThreshold is the mid-scale fallback used while signal
	// contrast is inadequate.
	DefaultThreshold = 128
	// CalibrateOffset is added to a manually calibrated baseline to
	// form the effective threshold.
	CalibrateOffset = 30
	// SwingFloor is the minimum high/low percentile gap considered
	// adequate signal contrast.
	SwingFloor = 12
	// WindowSize is the capacity of the rolling brightness window.
	WindowSize = 150
)
