// Package receiver reconstructs text messages from an unsynchronized
// stream of timestamped brightness samples. Each sample is classified
// against an adaptive threshold, contiguous runs are tracked with a
// noise floor, and an explicit state table drives framing detection:
// a sustained high run arms the session, the first low sample fixes the
// frame origin, and a sustained low run (or a hard timeout) triggers
// run-length expansion of the recorded edges back into bits and bytes.
//
// A Receiver is single-owner: exactly one consumer feeds Push and calls
// the control surface; concurrent readers must use Snapshot.
package receiver

import (
	"time"

	"github.com/womat/debug"
	"luxlink/pkg/signal"
	"luxlink/pkg/threshold"
)

// run is a maximal contiguous span of samples at one level.
type run struct {
	level signal.Level
	start time.Duration
}

// session is the per-frame mutable state. It is replaced wholesale on
// reset so readers never observe a torn intermediate state.
type session struct {
	state  State
	origin time.Duration
	edges  []signal.Edge

	cur    run
	hasRun bool
	// pending is a level change observed but not yet past the noise
	// floor; it commits at its own start time once the new level has
	// persisted MinRun, and is dropped the moment the signal returns
	// to the open run's level.
	pending    run
	hasPending bool
}

func newSession() *session {
	return &session{state: Idle}
}

// Receiver owns a receive session and its threshold estimator.
type Receiver struct {
	est   *threshold.Estimator
	s     *session
	ready bool
}

// New returns a receiver in Idle with an untrained threshold.
func New() *Receiver {
	return &Receiver{
		est: threshold.New(),
		s:   newSession(),
	}
}

// Push consumes one brightness sample. The sample always feeds the
// threshold estimator; framing and edge recording only happen while the
// receiver is marked ready. When a frame completes (postamble or
// timeout), Push returns the decoded text and true.
func (r *Receiver) Push(s signal.Sample) (string, bool) {
	r.est.Push(s)

	if !r.ready {
		return "", false
	}

	level := signal.Low
	if s.Brightness > r.est.Threshold() {
		level = signal.High
	}

	// The frame origin is the first low-classified sample after the
	// preamble, taken raw: the noise floor does not apply here.
	if r.s.state == WaitForLow && level == signal.Low {
		return r.apply(EventFirstLow, s.Timestamp)
	}

	r.track(level, s.Timestamp)

	switch r.s.state {
	case Idle:
		if level == signal.High && r.s.hasRun && r.s.cur.level == signal.High &&
			s.Timestamp-r.s.cur.start >= signal.StartTrigger && r.est.Confident() {
			return r.apply(EventStartRun, s.Timestamp)
		}

	case Receiving:
		// the sample-level check keeps a pending (unconfirmed) level
		// change from letting a stale run reach the trigger
		if level == signal.Low && r.s.cur.level == signal.Low &&
			s.Timestamp-r.s.cur.start >= signal.StopTrigger {
			return r.apply(EventStopRun, s.Timestamp)
		}
		if s.Timestamp-r.s.origin >= signal.ReceiveTimeout {
			debug.ErrorLog.Printf("receive timeout after %v, forcing decode", signal.ReceiveTimeout)
			return r.apply(EventTimeout, s.Timestamp)
		}
	}

	return "", false
}

// track debounces the classified level against the noise floor. A
// level change opens a pending run; if the signal returns to the open
// run's level before the change has persisted MinRun, the excursion is
// discarded and the run continues measured from its original start.
// Once the change persists, it commits retroactively at the time it
// was first observed, and while receiving that instant is recorded as
// an edge.
func (r *Receiver) track(level signal.Level, now time.Duration) {
	s := r.s

	if !s.hasRun {
		s.cur = run{level: level, start: now}
		s.hasRun = true
		return
	}

	if level == s.cur.level {
		// a pending change that never persisted was a noise blip
		s.hasPending = false
		return
	}

	if !s.hasPending {
		s.pending = run{level: level, start: now}
		s.hasPending = true
		return
	}

	if now-s.pending.start < signal.MinRun {
		return
	}

	// the new level persisted past the noise floor: commit the
	// transition at the instant it was first observed
	if s.state == Receiving && s.pending.start-s.cur.start >= signal.MinRun {
		s.edges = append(s.edges, signal.Edge{Timestamp: s.pending.start - s.origin, Level: level})
	}
	s.cur = s.pending
	s.hasPending = false
}

// apply runs the state table for ev and executes the attached effect.
// For decoding effects it returns the decoded text.
func (r *Receiver) apply(ev Event, now time.Duration) (string, bool) {
	tr, ok := lookup(r.s.state, ev)
	if !ok {
		return "", false
	}

	from := r.s.state
	r.s.state = tr.next
	debug.DebugLog.Printf("receiver %v --%v--> %v", from, ev, tr.next)

	switch tr.do {
	case effectOpenFrame:
		r.s.origin = now
		r.s.edges = []signal.Edge{{Timestamp: 0, Level: signal.Low}}
		r.s.cur = run{level: signal.Low, start: now}
		r.s.hasRun = true
		r.s.hasPending = false

	case effectDecode:
		stop := now - r.s.origin
		if ev == EventStopRun {
			// one bit period past the final run start, so a trailing
			// low data bit is not truncated by the postamble
			stop = r.s.cur.start - r.s.origin + signal.BitPeriod
		}
		text, leftover := decode(reconstruct(r.s.edges, stop))
		if leftover > 0 {
			debug.DebugLog.Printf("%d undecoded trailing bits", leftover)
		}
		debug.InfoLog.Printf("frame decoded from %d edges: %q", len(r.s.edges), text)

		// re-arm for the next frame
		r.s = newSession()
		return text, true

	case effectClear:
		r.s = newSession()
	}

	return "", false
}

// Reset returns the receiver to Idle with a fresh session and an
// untrained, uncalibrated threshold.
func (r *Receiver) Reset() {
	r.apply(EventReset, 0)
	r.est.Reset()
	debug.InfoLog.Print("receiver reset")
}

// Calibrate snapshots the current brightness window as the dark
// baseline. Returns false while the window is too small.
func (r *Receiver) Calibrate() bool {
	return r.est.Calibrate()
}

// MarkReady opens the readiness gate; samples start driving the state
// machine. Called once the host reports the sensor as settled.
func (r *Receiver) MarkReady() {
	r.ready = true
	debug.InfoLog.Print("receiver marked ready")
}

// MarkNotReady closes the readiness gate. Samples keep feeding the
// threshold estimator but no state transitions occur.
func (r *Receiver) MarkNotReady() {
	r.ready = false
	debug.InfoLog.Print("receiver marked not ready")
}

// State returns the current session state.
func (r *Receiver) State() State { return r.s.state }

// Ready reports whether the readiness gate is open.
func (r *Receiver) Ready() bool { return r.ready }

// Threshold returns the current classification threshold.
func (r *Receiver) Threshold() int { return r.est.Threshold() }

// Swing returns the current signal contrast estimate.
func (r *Receiver) Swing() int { return r.est.Swing() }

// SampleRate returns the estimated sensor rate in samples per second.
func (r *Receiver) SampleRate() float64 { return r.est.SampleRate() }
