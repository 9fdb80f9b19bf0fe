// Package relay drives the speed-select inputs of the pump inverter.
// The inverter decodes at most one active select line; two lines high at
// the same instant is an undefined input, so every transition goes through
// an all-off state with a settle delay before the new line is asserted.
package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type Line int

const (
	LineNight Line = iota
	LineDay
	LineBackwash

	lineCount
)

func (l Line) String() string {
	switch l {
	case LineNight:
		return "night"
	case LineDay:
		return "day"
	case LineBackwash:
		return "backwash"
	}
	return fmt.Sprintf("line(%d)", int(l))
}

// Pattern is the desired state of the three select lines. At most one
// may be set; the zero value means all lines off.
type Pattern struct {
	SelectNight    bool
	SelectDay      bool
	SelectBackwash bool
}

func (p Pattern) active() (Line, bool) {
	switch {
	case p.SelectNight:
		return LineNight, true
	case p.SelectDay:
		return LineDay, true
	case p.SelectBackwash:
		return LineBackwash, true
	}
	return 0, false
}

func (p Pattern) count() int {
	n := 0
	for _, b := range []bool{p.SelectNight, p.SelectDay, p.SelectBackwash} {
		if b {
			n++
		}
	}
	return n
}

var ErrAmbiguousPattern = errors.New("relay: pattern selects more than one line")

// Outputs is the hardware boundary. Implementations write a single
// select line without any ordering guarantees of their own.
type Outputs interface {
	SetLine(line Line, on bool) error
}

const DefaultSettle = 100 * time.Millisecond

// Mapper applies select-line patterns with make-before-break-safe ordering.
type Mapper struct {
	out    Outputs
	settle time.Duration
	sleep  func(time.Duration)
}

func NewMapper(out Outputs, settle time.Duration) *Mapper {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Mapper{
		out:    out,
		settle: settle,
		sleep:  time.Sleep,
	}
}

// Apply drives the outputs to the given pattern. All lines are de-asserted
// first and the settle interval is waited out before the new line goes high.
// On any write failure the pattern is not considered applied; the outputs
// are left in a state where a retry of Apply is safe.
func (m *Mapper) Apply(p Pattern) error {
	if p.count() > 1 {
		return ErrAmbiguousPattern
	}

	if err := m.AllOff(); err != nil {
		return err
	}

	line, on := p.active()
	if !on {
		return nil
	}

	m.sleep(m.settle)

	if err := m.out.SetLine(line, true); err != nil {
		return fmt.Errorf("relay: assert %s: %w", line, err)
	}
	logrus.Debugf("relay: %s line asserted", line)
	return nil
}

// AllOff de-asserts every select line.
func (m *Mapper) AllOff() error {
	for line := Line(0); line < lineCount; line++ {
		if err := m.out.SetLine(line, false); err != nil {
			return fmt.Errorf("relay: clear %s: %w", line, err)
		}
	}
	return nil
}
