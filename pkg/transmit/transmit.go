// Package transmit turns a text message into a framed bit vector and an
// absolute-time actuation schedule, and drives a light actuator through
// that schedule.
package transmit

import (
	"time"

	"luxlink/pkg/linecode"
	"luxlink/pkg/signal"
)

// Action is one scheduled actuation event: switch the light to Level at
// the absolute time At.
type Action struct {
	At    time.Time
	Level signal.Level
}

// EncodeMessage expands the UTF-8 bytes of text into the line-coded bit
// vector of the data segment, 10 bits per byte.
func EncodeMessage(text string) []signal.Level {
	raw := []byte(text)
	bits := make([]signal.Level, 0, len(raw)*linecode.ByteBits)
	for _, b := range raw {
		bits = append(bits, linecode.EncodeByte(b)...)
	}
	return bits
}

// Schedule frames the bit vector and lays it out on an absolute time
// axis starting at t0: the high preamble, one event per data bit, and
// the low postamble. Every timestamp is computed from t0 alone, so
// actuation jitter on one event can never shift the target time of the
// next.
func Schedule(bits []signal.Level, t0 time.Time) []Action {
	actions := make([]Action, 0, len(bits)+3)

	actions = append(actions, Action{At: t0, Level: signal.High})

	dataStart := t0.Add(signal.StartDuration)
	actions = append(actions, Action{At: dataStart, Level: signal.Low})
	for i, bit := range bits {
		actions = append(actions, Action{
			At:    dataStart.Add(time.Duration(i) * signal.BitPeriod),
			Level: bit,
		})
	}

	stopAt := dataStart.Add(time.Duration(len(bits)) * signal.BitPeriod)
	actions = append(actions, Action{At: stopAt, Level: signal.Low})

	return actions
}

// Duration returns the total on-air time of a schedule, postamble
// included.
func Duration(bits []signal.Level) time.Duration {
	return signal.StartDuration + time.Duration(len(bits))*signal.BitPeriod + signal.StopDuration
}
