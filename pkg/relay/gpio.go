//go:build linux

package relay

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOOutputs drives the select lines through the Linux GPIO character
// device. Pin indexes follow the relay board wiring, night/day/backwash
// in that order.
type GPIOOutputs struct {
	chip  *gpiocdev.Chip
	lines [lineCount]*gpiocdev.Line
}

func NewGPIOOutputs(chipName string, pins [3]int) (*GPIOOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	g := &GPIOOutputs{chip: chip}
	for i, pin := range pins {
		// Lines start low so the pump powers up with no speed selected.
		l, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", Line(i), pin, err)
		}
		g.lines[i] = l
	}
	return g, nil
}

func (g *GPIOOutputs) SetLine(line Line, on bool) error {
	if line < 0 || line >= lineCount {
		return fmt.Errorf("invalid line %d", line)
	}
	v := 0
	if on {
		v = 1
	}
	if err := g.lines[line].SetValue(v); err != nil {
		return fmt.Errorf("set %s: %w", line, err)
	}
	return nil
}

// Close releases the requested lines and the chip. Lines are driven low
// first so a restart never inherits an asserted select line.
func (g *GPIOOutputs) Close() error {
	var errs []error
	for i, l := range g.lines {
		if l == nil {
			continue
		}
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", Line(i), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", Line(i), err))
		}
	}
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
