package transmit

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/womat/debug"
	"luxlink/pkg/signal"
)

var (
	// ErrBusy is returned when a transmission is already in flight.
	ErrBusy = errors.New("transmission already in progress")
	// ErrEmptyMessage is returned for a message with no payload bits.
	ErrEmptyMessage = errors.New("empty message")
)

// Actuator is the light source driven by the sender. Implemented
// externally (e.g. a gpiod line, a camera torch).
type Actuator interface {
	// Set switches the light on or off.
	Set(on bool) error
}

// Sender executes actuation schedules against an actuator. At most one
// transmission is in flight at a time; concurrent requests are rejected.
// A started transmission always runs to completion, and the actuator is
// forced off on any failure and at the end of every schedule.
type Sender struct {
	actuator Actuator

	// busy is the atomic single-flight flag.
	busy atomic.Bool

	// sleepUntil suspends until an absolute deadline. Replaceable for
	// tests; the default waits on the wall clock.
	sleepUntil func(time.Time)
	// now returns the current wall-clock time.
	now func() time.Time
}

// NewSender returns a sender driving the given actuator.
func NewSender(actuator Actuator) *Sender {
	return &Sender{
		actuator:   actuator,
		sleepUntil: func(t time.Time) { time.Sleep(time.Until(t)) },
		now:        time.Now,
	}
}

// Send encodes, schedules and transmits a message, blocking until the
// postamble has completed. It returns ErrBusy if another transmission
// is active.
func (s *Sender) Send(text string) error {
	bits := EncodeMessage(text)
	if len(bits) == 0 {
		return ErrEmptyMessage
	}

	if !s.busy.CompareAndSwap(false, true) {
		debug.DebugLog.Print("transmit rejected, sender busy")
		return ErrBusy
	}
	defer s.busy.Store(false)

	debug.InfoLog.Printf("transmitting %d bits (%v on air)", len(bits), Duration(bits))
	return s.run(Schedule(bits, s.now()))
}

// Sending reports whether a transmission is in flight.
func (s *Sender) Sending() bool {
	return s.busy.Load()
}

// run walks the schedule as a sequence of absolute-deadline waits.
// Sleeping until each event's own target time, instead of sleeping for
// deltas, keeps per-event jitter from accumulating across the frame.
func (s *Sender) run(actions []Action) error {
	for _, a := range actions {
		s.sleepUntil(a.At)

		if err := s.actuator.Set(a.Level == signal.High); err != nil {
			s.forceOff()
			return fmt.Errorf("actuator failed mid-transmission: %w", err)
		}
	}

	// hold the postamble, then leave the actuator off
	s.sleepUntil(actions[len(actions)-1].At.Add(signal.StopDuration))

	if err := s.actuator.Set(false); err != nil {
		return fmt.Errorf("actuator failed to switch off: %w", err)
	}
	return nil
}

// forceOff drives the actuator off after a failure, best effort.
func (s *Sender) forceOff() {
	if err := s.actuator.Set(false); err != nil {
		debug.ErrorLog.Printf("can't force actuator off: %v", err)
	}
}
