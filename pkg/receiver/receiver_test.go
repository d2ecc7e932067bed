package receiver

import (
	"strings"
	"testing"
	"time"

	"luxlink/pkg/signal"
	"luxlink/pkg/transmit"
)

const (
	sampleStep = 25 * time.Millisecond
	brightHigh = 220
	brightLow  = 30
)

// frameTransitions lays out the level changes of one transmission
// starting at start: preamble, data bits, postamble. It returns the
// transition list (absolute timestamps) and the end of the postamble.
func frameTransitions(bits []signal.Level, start time.Duration) ([]signal.Edge, time.Duration) {
	trs := []signal.Edge{{Timestamp: start, Level: signal.High}}

	dataStart := start + signal.StartDuration
	trs = append(trs, signal.Edge{Timestamp: dataStart, Level: signal.Low})
	for i, b := range bits {
		trs = append(trs, signal.Edge{Timestamp: dataStart + time.Duration(i)*signal.BitPeriod, Level: b})
	}

	stop := dataStart + time.Duration(len(bits))*signal.BitPeriod
	trs = append(trs, signal.Edge{Timestamp: stop, Level: signal.Low})
	return trs, stop + signal.StopDuration
}

// levelAt returns the signal level at time t; transitions sharing a
// timestamp resolve to the last one, as an actuator would.
func levelAt(trs []signal.Edge, t time.Duration) signal.Level {
	lvl := signal.Low
	for _, tr := range trs {
		if tr.Timestamp > t {
			break
		}
		lvl = tr.Level
	}
	return lvl
}

// sampleStream renders the transition list into brightness samples on a
// fixed cadence, ambient-dark outside the frame.
func sampleStream(trs []signal.Edge, from, to, step time.Duration) []signal.Sample {
	var out []signal.Sample
	for t := from; t <= to; t += step {
		b := brightLow
		if levelAt(trs, t) == signal.High {
			b = brightHigh
		}
		out = append(out, signal.Sample{Timestamp: t, Brightness: b})
	}
	return out
}

// pushAll feeds samples and collects every decode result.
func pushAll(r *Receiver, samples []signal.Sample) []string {
	var decoded []string
	for _, s := range samples {
		if text, ok := r.Push(s); ok {
			decoded = append(decoded, text)
		}
	}
	return decoded
}

// receiveFrame runs a complete simulated transmission of bits through a
// fresh, ready receiver with one second of ambient lead-in.
func receiveFrame(t *testing.T, bits []signal.Level, step time.Duration) []string {
	t.Helper()

	trs, end := frameTransitions(bits, time.Second)
	r := New()
	r.MarkReady()
	return pushAll(r, sampleStream(trs, 0, end+500*time.Millisecond, step))
}

func TestNoiselessRoundTrip(t *testing.T) {
	for _, msg := range []string{"H", "Hi", "Hello, World!"} {
		decoded := receiveFrame(t, transmit.EncodeMessage(msg), sampleStep)
		if len(decoded) != 1 {
			t.Fatalf("%q: got %d decodes, want 1", msg, len(decoded))
		}
		if decoded[0] != msg {
			t.Errorf("round trip: got %q, want %q", decoded[0], msg)
		}
	}
}

func TestJitterTolerance(t *testing.T) {
	msg := "Hi"
	bits := transmit.EncodeMessage(msg)
	trs, end := frameTransitions(bits, time.Second)

	// perturb every transition by up to ±40ms, alternating sign so
	// adjacent runs see the worst-case stretch and squeeze
	jitter := []time.Duration{
		40 * time.Millisecond, -40 * time.Millisecond,
		-35 * time.Millisecond, 35 * time.Millisecond,
		25 * time.Millisecond, -25 * time.Millisecond,
	}
	for i := range trs {
		trs[i].Timestamp += jitter[i%len(jitter)]
	}

	r := New()
	r.MarkReady()
	decoded := pushAll(r, sampleStream(trs, 0, end+500*time.Millisecond, 5*time.Millisecond))

	if len(decoded) != 1 || decoded[0] != msg {
		t.Fatalf("jittered round trip: got %v, want [%q]", decoded, msg)
	}
}

func TestNoiseBlipDoesNotAlterDecode(t *testing.T) {
	msg := "Hi"
	bits := transmit.EncodeMessage(msg)
	trs, end := frameTransitions(bits, time.Second)
	samples := sampleStream(trs, 0, end+500*time.Millisecond, sampleStep)

	// inject a 50ms dark blip into the preamble and a 50ms bright blip
	// into the middle of the low run spanning bits 9-10 (1.8s-2.2s
	// after data start)
	blip := func(at time.Duration, brightness int) {
		for i := range samples {
			if samples[i].Timestamp >= at && samples[i].Timestamp < at+50*time.Millisecond {
				samples[i].Brightness = brightness
			}
		}
	}
	blip(time.Second+300*time.Millisecond, brightLow)
	blip(time.Second+signal.StartDuration+1975*time.Millisecond, brightHigh)

	r := New()
	r.MarkReady()
	decoded := pushAll(r, samples)

	if len(decoded) != 1 || decoded[0] != msg {
		t.Fatalf("decode with noise blips: got %v, want [%q]", decoded, msg)
	}
}

func TestNoiseBlipNeverBecomesEdge(t *testing.T) {
	r := New()
	r.MarkReady()
	r.s.state = Receiving
	r.s.edges = []signal.Edge{{Timestamp: 0, Level: signal.Low}}
	r.s.cur = run{level: signal.Low, start: 0}
	r.s.hasRun = true

	ms := func(d int) time.Duration { return time.Duration(d) * time.Millisecond }

	// a 50ms excursion to high never persists past the noise floor and
	// must leave neither an edge nor a shifted run start
	r.track(signal.High, ms(300))
	r.track(signal.High, ms(325))
	r.track(signal.Low, ms(350))
	if len(r.s.edges) != 1 {
		t.Fatalf("blip produced an edge: %v", r.s.edges)
	}
	if r.s.cur.level != signal.Low || r.s.cur.start != 0 {
		t.Fatalf("run disturbed by blip: %+v", r.s.cur)
	}

	// a persistent change commits retroactively at its first sample
	r.track(signal.High, ms(600))
	r.track(signal.High, ms(625))
	r.track(signal.High, ms(650))
	r.track(signal.High, ms(675))
	if len(r.s.edges) != 1 {
		t.Fatalf("change committed before the noise floor: %v", r.s.edges)
	}
	r.track(signal.High, ms(700))
	if len(r.s.edges) != 2 || r.s.edges[1].Timestamp != ms(600) || r.s.edges[1].Level != signal.High {
		t.Fatalf("persistent change not committed at first observation: %v", r.s.edges)
	}
	if r.s.cur.level != signal.High || r.s.cur.start != ms(600) {
		t.Fatalf("run not moved to committed change: %+v", r.s.cur)
	}
}

func TestCorruptSymbolMarksOneByte(t *testing.T) {
	bits := transmit.EncodeMessage("Hi")

	// replace the high-nibble group of 'i' with 00110, which is not in
	// the code; its runs stay within the 3-bit bound
	corrupt := []signal.Level{signal.Low, signal.Low, signal.High, signal.High, signal.Low}
	copy(bits[10:15], corrupt)

	decoded := receiveFrame(t, bits, sampleStep)
	if len(decoded) != 1 {
		t.Fatalf("got %d decodes, want 1", len(decoded))
	}

	want := "H" + string(ErrorMarker)
	if decoded[0] != want {
		t.Errorf("corrupted frame decoded to %q, want %q", decoded[0], want)
	}
}

func TestNotReadyGate(t *testing.T) {
	bits := transmit.EncodeMessage("H")
	trs, end := frameTransitions(bits, time.Second)
	samples := sampleStream(trs, 0, end+500*time.Millisecond, sampleStep)

	r := New()

	// without MarkReady no sample may produce a result or a transition
	for _, s := range samples {
		if _, ok := r.Push(s); ok {
			t.Fatal("Push produced a result while not ready")
		}
	}
	if r.State() != Idle {
		t.Fatalf("state = %v while not ready, want idle", r.State())
	}

	// the estimator was fed regardless
	if r.Swing() < signal.SwingFloor {
		t.Errorf("swing = %d after a full frame, estimator apparently not fed", r.Swing())
	}

	// an identical subsequent pulse train decodes once ready
	r.MarkReady()
	base := end + time.Second
	trs2, end2 := frameTransitions(bits, base+time.Second)
	decoded := pushAll(r, sampleStream(trs2, base, end2+500*time.Millisecond, sampleStep))

	if len(decoded) != 1 || decoded[0] != "H" {
		t.Fatalf("decode after MarkReady: got %v, want [\"H\"]", decoded)
	}
}

func TestReceiverReArmsAfterDecode(t *testing.T) {
	bits := transmit.EncodeMessage("H")

	trs1, end1 := frameTransitions(bits, time.Second)
	base2 := end1 + time.Second
	trs2, end2 := frameTransitions(bits, base2+time.Second)

	r := New()
	r.MarkReady()

	decoded := pushAll(r, sampleStream(trs1, 0, end1+500*time.Millisecond, sampleStep))
	decoded = append(decoded, pushAll(r, sampleStream(trs2, base2, end2+500*time.Millisecond, sampleStep))...)

	if len(decoded) != 2 || decoded[0] != "H" || decoded[1] != "H" {
		t.Fatalf("back-to-back frames: got %v, want [\"H\" \"H\"]", decoded)
	}
	if r.State() != Idle {
		t.Errorf("state = %v after decode, want idle", r.State())
	}
}

func TestReceiveTimeoutForcesDecode(t *testing.T) {
	// a preamble followed by endless alternating bits, never a postamble
	trs := []signal.Edge{{Timestamp: time.Second, Level: signal.High}}
	dataStart := time.Second + signal.StartDuration
	lvl := signal.Low
	for t0 := dataStart; t0 < dataStart+signal.ReceiveTimeout+2*time.Second; t0 += signal.BitPeriod {
		trs = append(trs, signal.Edge{Timestamp: t0, Level: lvl})
		if lvl == signal.Low {
			lvl = signal.High
		} else {
			lvl = signal.Low
		}
	}

	r := New()
	r.MarkReady()
	decoded := pushAll(r, sampleStream(trs, 0, dataStart+signal.ReceiveTimeout+time.Second, sampleStep))

	if len(decoded) != 1 {
		t.Fatalf("got %d decodes from a stuck session, want 1 forced decode", len(decoded))
	}
	if decoded[0] == "" {
		t.Error("forced decode returned nothing")
	}
	if r.State() != Idle {
		t.Errorf("state = %v after forced decode, want idle", r.State())
	}
}

func TestInsufficientDataDiagnostic(t *testing.T) {
	// a frame carrying a single bit cannot fill one code group
	bits := []signal.Level{signal.High}
	decoded := receiveFrame(t, bits, sampleStep)

	if len(decoded) != 1 {
		t.Fatalf("got %d decodes, want 1", len(decoded))
	}
	if !strings.HasPrefix(decoded[0], "bits ") {
		t.Errorf("short frame decoded to %q, want raw-bit diagnostic", decoded[0])
	}
}

func TestStateTable(t *testing.T) {
	tests := []struct {
		state State
		event Event
		next  State
		taken bool
	}{
		{Idle, EventStartRun, WaitForLow, true},
		{Idle, EventFirstLow, 0, false},
		{Idle, EventStopRun, 0, false},
		{WaitForLow, EventFirstLow, Receiving, true},
		{WaitForLow, EventStartRun, 0, false},
		{Receiving, EventStopRun, Done, true},
		{Receiving, EventTimeout, Done, true},
		{Receiving, EventStartRun, 0, false},
		{Done, EventStartRun, 0, false},
		{Done, EventFirstLow, 0, false},
		{Done, EventReset, Idle, true},
		{Idle, EventReset, Idle, true},
	}

	for _, tc := range tests {
		tr, ok := lookup(tc.state, tc.event)
		if ok != tc.taken {
			t.Errorf("lookup(%v, %v): taken = %v, want %v", tc.state, tc.event, ok, tc.taken)
			continue
		}
		if ok && tr.next != tc.next {
			t.Errorf("lookup(%v, %v): next = %v, want %v", tc.state, tc.event, tr.next, tc.next)
		}
	}
}

func TestResetClearsSession(t *testing.T) {
	bits := transmit.EncodeMessage("H")
	trs, _ := frameTransitions(bits, time.Second)

	r := New()
	r.MarkReady()
	// feed just past the frame origin so the session is mid-receive
	pushAll(r, sampleStream(trs, 0, time.Second+signal.StartDuration+300*time.Millisecond, sampleStep))

	if r.State() != Receiving {
		t.Fatalf("state = %v, want receiving", r.State())
	}

	r.Reset()
	if r.State() != Idle {
		t.Errorf("state = %v after reset, want idle", r.State())
	}
	if snap := r.Snapshot(); snap.Edges != 0 || snap.Swing != 0 {
		t.Errorf("reset kept session data: %+v", snap)
	}
}
