// Package sensor provides the brightness sample sources feeding the
// receiver. The camera pipeline itself is external; a deployment wires
// its samples into a Feed, and recorded captures can be replayed from
// disk for development and testing.
package sensor

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/womat/debug"
	"luxlink/pkg/signal"
)

// Source delivers timestamped brightness samples in order.
type Source interface {
	// C is the channel of incoming samples; it closes when the source
	// ends.
	C() <-chan signal.Sample
	// Close stops the source and releases its resources.
	Close() error
}

// Feed is a Source fed by the host (e.g. from a camera callback).
type Feed struct {
	c chan signal.Sample
}

// NewFeed returns a Feed with a small buffer so a slow consumer does
// not stall the sampling callback.
func NewFeed() *Feed {
	return &Feed{c: make(chan signal.Sample, 64)}
}

// Push hands a sample to the consumer. Samples arriving while the
// buffer is full are dropped; the receiver tolerates gaps far better
// than reordered or delayed timestamps.
func (f *Feed) Push(s signal.Sample) {
	select {
	case f.c <- s:
	default:
		debug.TraceLog.Print("sample dropped, consumer behind")
	}
}

// C returns the sample channel.
func (f *Feed) C() <-chan signal.Sample { return f.c }

// Close ends the feed.
func (f *Feed) Close() error {
	close(f.c)
	return nil
}

// Replay streams a recorded capture file. Each line holds
// "<timestampMs> <brightness>"; blank lines and lines starting with #
// are skipped.
type Replay struct {
	c    chan signal.Sample
	quit chan struct{}
}

// NewReplay opens the capture file and starts streaming. With pace
// set, samples are delivered on the recorded cadence; otherwise as
// fast as the consumer takes them.
func NewReplay(file string, pace bool) (*Replay, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("can't open capture file %q: %w", file, err)
	}

	r := &Replay{
		c:    make(chan signal.Sample),
		quit: make(chan struct{}),
	}

	go r.run(f, pace)
	return r, nil
}

func (r *Replay) run(f *os.File, pace bool) {
	defer close(r.c)
	defer func() { _ = f.Close() }()

	var last time.Duration
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s, err := parseLine(line)
		if err != nil {
			debug.ErrorLog.Printf("skipping capture line %q: %v", line, err)
			continue
		}

		if pace && last > 0 && s.Timestamp > last {
			time.Sleep(s.Timestamp - last)
		}
		last = s.Timestamp

		select {
		case r.c <- s:
		case <-r.quit:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		debug.ErrorLog.Printf("reading capture file: %v", err)
	}
}

func parseLine(line string) (signal.Sample, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return signal.Sample{}, fmt.Errorf("want 2 fields, got %d", len(fields))
	}

	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return signal.Sample{}, fmt.Errorf("bad timestamp: %w", err)
	}
	b, err := strconv.Atoi(fields[1])
	if err != nil {
		return signal.Sample{}, fmt.Errorf("bad brightness: %w", err)
	}
	if b < 0 || b > signal.BrightnessMax {
		return signal.Sample{}, fmt.Errorf("brightness %d outside 0-%d", b, signal.BrightnessMax)
	}

	return signal.Sample{
		Timestamp:  time.Duration(ms) * time.Millisecond,
		Brightness: b,
	}, nil
}

// C returns the sample channel.
func (r *Replay) C() <-chan signal.Sample { return r.c }

// Close stops the replay.
func (r *Replay) Close() error {
	close(r.quit)
	return nil
}
