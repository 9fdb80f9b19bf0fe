// Package pump holds the canonical pump state and the operations that
// mutate it. All transitions go through the relay mapper; a mode is not
// committed until the outputs confirmed the write.
package pump

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andersCTO/poolPumpControl/pkg/relay"
	"github.com/sirupsen/logrus"
)

type Mode int

const (
	ModeOff Mode = iota
	ModeNight
	ModeDay
	ModeBackwash
	// ModeSelfPrime is a transient startup mode, run at full speed on the
	// backwash select line until the pump housing is flooded.
	ModeSelfPrime
)

const (
	RPMNight    = 1400
	RPMDay      = 2000
	RPMBackwash = 2900
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeNight:
		return "night"
	case ModeDay:
		return "day"
	case ModeBackwash:
		return "backwash"
	case ModeSelfPrime:
		return "selfprime"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// RPM returns the nominal speed of the mode, 0 for off.
func (m Mode) RPM() int {
	switch m {
	case ModeNight:
		return RPMNight
	case ModeDay:
		return RPMDay
	case ModeBackwash, ModeSelfPrime:
		return RPMBackwash
	}
	return 0
}

func (m Mode) valid() bool {
	return m >= ModeOff && m <= ModeSelfPrime
}

// Pattern returns the one-hot select-line pattern for the mode.
func (m Mode) Pattern() relay.Pattern {
	switch m {
	case ModeNight:
		return relay.Pattern{SelectNight: true}
	case ModeDay:
		return relay.Pattern{SelectDay: true}
	case ModeBackwash, ModeSelfPrime:
		return relay.Pattern{SelectBackwash: true}
	}
	return relay.Pattern{}
}

var (
	ErrInvalidMode     = errors.New("pump: invalid mode")
	ErrPumpOff         = errors.New("pump: cannot start with no speed selected")
	ErrInvalidDuration = errors.New("pump: duration must be positive")
)

// Status is a snapshot of the pump state.
type Status struct {
	Mode                Mode   `json:"mode"`
	ModeName            string `json:"modeName"`
	IsRunning           bool   `json:"isRunning"`
	CurrentRPM          int    `json:"currentRpm"`
	DailyRuntimeMinutes int    `json:"dailyRuntimeMinutes"`
}

// Controller owns the pump state. A single mutex covers every
// read-then-write sequence so scheduler ticks and configuration writes
// never interleave.
type Controller struct {
	mu     sync.Mutex
	mapper *relay.Mapper

	mode           Mode
	isRunning      bool
	runtimeMinutes int
}

func New(mapper *relay.Mapper) *Controller {
	return &Controller{
		mapper: mapper,
		mode:   ModeOff,
	}
}

// SetMode applies the relay pattern for the mode and commits the new
// state only when the outputs accepted it. The running flag is left
// untouched; a mode set while stopped takes effect once started.
func (c *Controller) SetMode(mode Mode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mapper.Apply(mode.Pattern()); err != nil {
		return err
	}

	c.mode = mode
	logrus.WithFields(logrus.Fields{
		"mode": mode.String(),
		"rpm":  mode.RPM(),
	}).Info("pump: mode set")
	return nil
}

// Start marks the pump running. Fails when no speed is selected.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeOff {
		return ErrPumpOff
	}
	c.isRunning = true
	logrus.Infof("pump: started in %s mode", c.mode)
	return nil
}

// Stop always succeeds at the logical level: the state is forced to
// off/stopped even when the relay write fails, since a pump we cannot
// verify stopped must still be treated as stopped to keep the control
// loop from retrying forever. A hardware fault is still returned.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isRunning = false
	c.mode = ModeOff

	err := c.mapper.AllOff()
	if err != nil {
		logrus.Errorf("pump: stop relay write failed: %v", err)
	}
	logrus.Info("pump: stopped")
	return err
}

// RunBackwash switches to backwash mode and starts the pump. The
// duration is advisory; the caller owns the timer that stops the pump
// when the window elapses.
func (c *Controller) RunBackwash(duration time.Duration) error {
	if duration <= 0 {
		return ErrInvalidDuration
	}

	logrus.Infof("pump: starting backwash cycle for %s", duration)
	if err := c.SetMode(ModeBackwash); err != nil {
		return err
	}
	return c.Start()
}

// Status returns a snapshot of the current pump state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Mode:                c.mode,
		ModeName:            c.mode.String(),
		IsRunning:           c.isRunning,
		CurrentRPM:          c.currentRPM(),
		DailyRuntimeMinutes: c.runtimeMinutes,
	}
}

func (c *Controller) currentRPM() int {
	if c.mode == ModeOff {
		return 0
	}
	return c.mode.RPM()
}

// AddRuntime credits minutes of runtime to today's counter.
func (c *Controller) AddRuntime(minutes int) {
	c.mu.Lock()
	c.runtimeMinutes += minutes
	c.mu.Unlock()
}

// ResetDailyRuntime zeroes the daily counter at midnight rollover.
func (c *Controller) ResetDailyRuntime() {
	c.mu.Lock()
	c.runtimeMinutes = 0
	c.mu.Unlock()
}
