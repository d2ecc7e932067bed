// Package lamp drives the transmit light source over a gpiod output
// line.
package lamp

import (
	"fmt"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

// Lamp is a light actuator backed by a single GPIO output line.
type Lamp struct {
	chip *gpiod.Chip
	line *gpiod.Line
}

// Open requests the given GPIO as an output, initially off.
//
// If granted, control is maintained until the Lamp is closed.
func Open(gpio int) (*Lamp, error) {
	chip, err := gpiod.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("can't open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(gpio, gpiod.AsOutput(0))
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("can't request gpio %d: %w", gpio, err)
	}

	debug.InfoLog.Printf("lamp on gpio %d", gpio)
	return &Lamp{chip: chip, line: line}, nil
}

// Set switches the lamp on or off.
func (l *Lamp) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return l.line.SetValue(v)
}

// Close switches the lamp off and releases the line and chip.
func (l *Lamp) Close() error {
	_ = l.line.SetValue(0)
	if err := l.line.Close(); err != nil {
		return err
	}
	return l.chip.Close()
}
