// Package threshold maintains the adaptive brightness threshold used to
// classify samples as light-on or light-off. It keeps a rolling window
// of recent samples and derives the threshold from its 10th/90th
// percentiles, or from a manually calibrated baseline.
package threshold

import (
	"sort"
	"time"

	"github.com/womat/debug"
	"luxlink/pkg/signal"
)

const (
	// minSamples is the window size required before percentiles are
	// considered meaningful.
	minSamples = 12
	// calibrateMin is the window size required to snapshot a baseline.
	calibrateMin = 10
)

// Estimator derives a binary-classification threshold from a rolling
// brightness window. It must be fed continuously, independent of
// receiver readiness, so a usable threshold exists the moment the
// state machine is armed.
type Estimator struct {
	// window is the FIFO of recent brightness samples.
	window []int

	// baseline is the manually calibrated dark level.
	baseline int
	// calibrated indicates baseline is in use.
	calibrated bool

	// threshold is the current effective threshold.
	threshold int
	// swing is the gap between the high and low percentile.
	swing int

	// rate estimation
	lastTimestamp time.Duration
	interval      time.Duration
}

// New returns an estimator starting at the mid-scale default threshold.
func New() *Estimator {
	return &Estimator{
		window:    make([]int, 0, signal.WindowSize),
		threshold: signal.DefaultThreshold,
	}
}

// Push appends a sample to the window, evicting the oldest beyond
// capacity, and recomputes threshold and swing once the window holds
// enough samples.
func (e *Estimator) Push(s signal.Sample) {
	if len(e.window) == signal.WindowSize {
		e.window = e.window[1:]
	}
	e.window = append(e.window, s.Brightness)

	e.estimateRate(s.Timestamp)

	if len(e.window) < minSamples {
		// threshold and swing retain their prior values
		return
	}

	sorted := make([]int, len(e.window))
	copy(sorted, e.window)
	sort.Ints(sorted)

	lo := sorted[len(sorted)*10/100]
	hi := sorted[len(sorted)*90/100]
	e.swing = hi - lo

	switch {
	case e.calibrated:
		e.threshold = e.baseline + signal.CalibrateOffset
	case e.swing >= signal.SwingFloor:
		e.threshold = (lo + hi) / 2
	default:
		e.threshold = signal.DefaultThreshold
	}
}

// estimateRate keeps a smoothed sample interval so the host can report
// the effective sensor rate.
func (e *Estimator) estimateRate(now time.Duration) {
	if e.lastTimestamp > 0 && now > e.lastTimestamp {
		dt := now - e.lastTimestamp
		if e.interval == 0 {
			e.interval = dt
		} else {
			e.interval = (e.interval*7 + dt) / 8
		}
	}
	e.lastTimestamp = now
}

// Calibrate snapshots the median of the current window as the dark
// baseline. Subsequent thresholds are baseline plus a fixed offset
// until Reset. Returns false if the window is still too small.
func (e *Estimator) Calibrate() bool {
	if len(e.window) < calibrateMin {
		return false
	}

	sorted := make([]int, len(e.window))
	copy(sorted, e.window)
	sort.Ints(sorted)

	e.baseline = sorted[len(sorted)/2]
	e.calibrated = true
	e.threshold = e.baseline + signal.CalibrateOffset

	debug.InfoLog.Printf("threshold calibrated: baseline %d, threshold %d", e.baseline, e.threshold)
	return true
}

// Reset discards the window, the calibration and the rate estimate.
func (e *Estimator) Reset() {
	e.window = e.window[:0]
	e.baseline = 0
	e.calibrated = false
	e.threshold = signal.DefaultThreshold
	e.swing = 0
	e.lastTimestamp = 0
	e.interval = 0
}

// Threshold returns the current effective threshold.
func (e *Estimator) Threshold() int { return e.threshold }

// Swing returns the current high/low percentile gap.
func (e *Estimator) Swing() int { return e.swing }

// Calibrated reports whether a manual baseline is in use.
func (e *Estimator) Calibrated() bool { return e.calibrated }

// Confident reports whether the signal contrast is adequate for frame
// detection: either the swing clears the floor or the operator has
// calibrated manually.
func (e *Estimator) Confident() bool {
	return e.calibrated || e.swing >= signal.SwingFloor
}

// SampleRate returns the estimated sensor rate in samples per second,
// or 0 while unknown.
func (e *Estimator) SampleRate() float64 {
	if e.interval == 0 {
		return 0
	}
	return float64(time.Second) / float64(e.interval)
}
