package receiver

// State of a receive session.
type State int

const (
	// Idle waits for a sustained high run (the preamble).
	Idle State = iota
	// WaitForLow has seen the preamble and waits for the first low
	// sample, which defines the frame origin.
	WaitForLow
	// Receiving records edges until the postamble or a timeout.
	Receiving
	// Done holds a completed session until it is reset.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitForLow:
		return "wait-for-low"
	case Receiving:
		return "receiving"
	case Done:
		return "done"
	}
	return "unknown"
}

// Event is a state machine input derived from the sample stream or the
// control surface.
type Event int

const (
	// EventStartRun fires when a confident high run reaches the start
	// trigger.
	EventStartRun Event = iota
	// EventFirstLow fires on the first low-classified sample after the
	// preamble.
	EventFirstLow
	// EventStopRun fires when a low run reaches the stop trigger.
	EventStopRun
	// EventTimeout fires when a session exceeds the hard receive
	// timeout without framing a postamble.
	EventTimeout
	// EventReset is the explicit return to Idle.
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventStartRun:
		return "start-run"
	case EventFirstLow:
		return "first-low"
	case EventStopRun:
		return "stop-run"
	case EventTimeout:
		return "timeout"
	case EventReset:
		return "reset"
	}
	return "unknown"
}

// effect is the side effect attached to a transition.
type effect int

const (
	effectNone effect = iota
	// effectOpenFrame fixes the frame origin and seeds the edge list.
	effectOpenFrame
	// effectDecode reconstructs and decodes the captured frame.
	effectDecode
	// effectClear replaces the session with a fresh one.
	effectClear
)

type transition struct {
	next State
	do   effect
}

// transitions is the state table: state × event → next state + effect.
// Events without an entry for the current state are ignored.
var transitions = map[State]map[Event]transition{
	Idle: {
		EventStartRun: {WaitForLow, effectNone},
		EventReset:    {Idle, effectClear},
	},
	WaitForLow: {
		EventFirstLow: {Receiving, effectOpenFrame},
		EventReset:    {Idle, effectClear},
	},
	Receiving: {
		EventStopRun: {Done, effectDecode},
		EventTimeout: {Done, effectDecode},
		EventReset:   {Idle, effectClear},
	},
	Done: {
		EventReset: {Idle, effectClear},
	},
}

// lookup returns the transition for ev in state s, if any.
func lookup(s State, ev Event) (transition, bool) {
	tr, ok := transitions[s][ev]
	return tr, ok
}
