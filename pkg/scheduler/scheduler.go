// Package scheduler decides, once per tick, whether the pump should run
// and at which speed tier. Decisions are made from injected wall-clock
// time, the cached price schedule, connectivity state and the daily
// runtime quotas; the engine itself never performs I/O.
package scheduler

import (
	"sync"
	"time"

	"github.com/andersCTO/poolPumpControl/pkg/pump"
	"github.com/andersCTO/poolPumpControl/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TickPeriod is the nominal spacing between decision ticks. Runtime is
// accounted in whole minutes, one per tick.
const TickPeriod = time.Minute

const (
	DefaultWindowStartHour = 6
	DefaultWindowEndHour   = 22

	statusLogEveryTicks = 15
)

// State names the decision the engine took on a tick. Derived, never
// stored; the pump status is the source of truth.
type State string

const (
	StateIdle             State = "idle"
	StateForcedMinRun     State = "forced-min-run"
	StateOptionalPriceRun State = "optional-price-run"
	StateCappedOff        State = "capped-off"
	StateOutOfWindow      State = "out-of-window"
	StateScheduledRun     State = "scheduled-run"
	StateBackwash         State = "backwash"
)

// Settings is the engine's read-only view of the persisted system
// settings, converted to the units the tick algorithm works in.
type Settings struct {
	MinRuntimeMinutes  int
	MaxRuntimeMinutes  int
	LowPriceThreshold  decimal.Decimal
	HighPriceThreshold decimal.Decimal
	WindowStartHour    int
	WindowEndHour      int
	BackwashInterval   time.Duration
	BackwashDuration   time.Duration
}

// SettingsFrom converts persisted settings into engine units. The
// operating window is not persisted; it stays at the 06:00-22:00
// default unless overridden on the returned value.
func SettingsFrom(s storage.SystemSettings) Settings {
	return Settings{
		MinRuntimeMinutes:  s.MinRuntimeHours * 60,
		MaxRuntimeMinutes:  s.MaxRuntimeHours * 60,
		LowPriceThreshold:  s.LowPriceThreshold,
		HighPriceThreshold: s.HighPriceThreshold,
		WindowStartHour:    DefaultWindowStartHour,
		WindowEndHour:      DefaultWindowEndHour,
		BackwashInterval:   time.Duration(s.BackwashIntervalDays) * 24 * time.Hour,
		BackwashDuration:   time.Duration(s.BackwashDurationMinutes) * time.Minute,
	}
}

// Pump is the state the engine owns and mutates each tick.
type Pump interface {
	SetMode(pump.Mode) error
	Start() error
	Stop() error
	RunBackwash(time.Duration) error
	Status() pump.Status
	AddRuntime(minutes int)
	ResetDailyRuntime()
}

// PriceSource answers price queries for a point in time.
type PriceSource interface {
	Current(now time.Time) (decimal.Decimal, bool)
	IsLowPrice(now time.Time, threshold decimal.Decimal) bool
}

// Connectivity reports the last-known network state.
type Connectivity interface {
	Connected() bool
}

// Engine evaluates the transition algorithm once per tick. One mutex
// covers the whole read-decide-mutate sequence so configuration pushes
// never interleave with a tick.
type Engine struct {
	mu     sync.Mutex
	pump   Pump
	prices PriceSource
	net    Connectivity

	settings Settings
	schedule storage.ScheduleConfig

	lastHour      int
	tickCount     int
	lastBackwash  time.Time
	backwashUntil time.Time
}

func New(p Pump, prices PriceSource, net Connectivity) *Engine {
	return &Engine{
		pump:     p,
		prices:   prices,
		net:      net,
		settings: SettingsFrom(storage.DefaultSettings()),
		schedule: storage.DefaultScheduleConfig(),
		lastHour: -1,
	}
}

// SetSettings replaces the settings view, e.g. after a provisioning
// write. Takes the tick lock, never a tick mid-flight.
func (e *Engine) SetSettings(s Settings) {
	e.mu.Lock()
	e.settings = s
	e.mu.Unlock()
}

func (e *Engine) SetScheduleConfig(c storage.ScheduleConfig) {
	e.mu.Lock()
	e.schedule = c
	e.mu.Unlock()
}

// Tick runs one evaluation of the transition algorithm for the given
// wall-clock time and returns the decision taken. A manual start or
// stop issued between ticks stays in effect until this reevaluation.
func (e *Engine) Tick(now time.Time) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Baseline the backwash interval at boot so a restart does not
	// immediately trigger a cycle.
	if e.lastBackwash.IsZero() {
		e.lastBackwash = now
	}

	if now.Hour() == 0 && e.lastHour == 23 {
		logrus.Info("scheduler: new day started, resetting runtime counter")
		e.pump.ResetDailyRuntime()
	}
	e.lastHour = now.Hour()

	state := e.evaluate(now)

	if e.pump.Status().IsRunning {
		e.pump.AddRuntime(1)
	}

	e.tickCount++
	if e.tickCount%statusLogEveryTicks == 0 {
		e.logStatus(now, state)
	}
	return state
}

// evaluate applies the precedence order: operating window, then active
// backwash, then max quota, then min quota, then the optional
// price-driven zone. Failed relay writes leave the pump state
// unadvanced; the next tick retries.
func (e *Engine) evaluate(now time.Time) State {
	st := e.pump.Status()

	if !e.inOperatingWindow(now) {
		if st.IsRunning {
			logrus.Info("scheduler: outside operating hours, stopping pump")
			e.stop()
		}
		return StateOutOfWindow
	}

	if !e.backwashUntil.IsZero() {
		if now.Before(e.backwashUntil) {
			return StateBackwash
		}
		e.backwashUntil = time.Time{}
		logrus.Info("scheduler: backwash window elapsed, stopping pump")
		e.stop()
		st = e.pump.Status()
	}

	if st.DailyRuntimeMinutes >= e.settings.MaxRuntimeMinutes {
		if st.IsRunning {
			logrus.Info("scheduler: maximum daily runtime reached, stopping pump")
			e.stop()
		}
		return StateCappedOff
	}

	if st.DailyRuntimeMinutes < e.settings.MinRuntimeMinutes {
		if !st.IsRunning {
			logrus.Infof("scheduler: starting pump to meet minimum runtime (%d/%d min)",
				st.DailyRuntimeMinutes, e.settings.MinRuntimeMinutes)
			e.start(e.optimalMode(now))
		}
		return StateForcedMinRun
	}

	if e.backwashDue(now) {
		if err := e.pump.RunBackwash(e.settings.BackwashDuration); err != nil {
			logrus.Errorf("scheduler: backwash start failed: %v", err)
			return StateIdle
		}
		e.lastBackwash = now
		e.backwashUntil = now.Add(e.settings.BackwashDuration)
		return StateBackwash
	}

	if e.inScheduleWindow(now) {
		if !st.IsRunning {
			logrus.Info("scheduler: configured run window, starting pump")
			e.start(e.optimalMode(now))
		}
		return StateScheduledRun
	}

	if e.prices.IsLowPrice(now, e.settings.LowPriceThreshold) {
		if !st.IsRunning {
			logrus.Info("scheduler: low price period detected, starting pump")
			e.start(e.optimalMode(now))
		}
		return StateOptionalPriceRun
	}

	if st.IsRunning {
		logrus.Info("scheduler: price increased, stopping optional operation")
		e.stop()
	}
	return StateIdle
}

// optimalMode picks the speed tier from the current price band. With no
// connectivity the pump must still meet its runtime obligations, so the
// documented fallback is day mode rather than staying off.
func (e *Engine) optimalMode(now time.Time) pump.Mode {
	if !e.net.Connected() {
		logrus.Warn("scheduler: not connected, using default day mode")
		return pump.ModeDay
	}

	p, ok := e.prices.Current(now)
	if !ok {
		logrus.Warn("scheduler: no price data for current period, using day mode")
		return pump.ModeDay
	}

	switch {
	case p.LessThan(e.settings.LowPriceThreshold):
		logrus.Infof("scheduler: low price period (%s EUR/kWh), using day mode", p)
		return pump.ModeDay
	case p.GreaterThan(e.settings.HighPriceThreshold):
		logrus.Infof("scheduler: high price period (%s EUR/kWh), using night mode", p)
		return pump.ModeNight
	default:
		// The mid band intentionally behaves like the low band.
		logrus.Infof("scheduler: medium price period (%s EUR/kWh), using day mode", p)
		return pump.ModeDay
	}
}

func (e *Engine) start(mode pump.Mode) {
	if err := e.pump.SetMode(mode); err != nil {
		logrus.Errorf("scheduler: set mode failed, retrying next tick: %v", err)
		return
	}
	if err := e.pump.Start(); err != nil {
		logrus.Errorf("scheduler: start failed: %v", err)
	}
}

func (e *Engine) stop() {
	if err := e.pump.Stop(); err != nil {
		logrus.Errorf("scheduler: stop relay write failed: %v", err)
	}
}

func (e *Engine) inOperatingWindow(now time.Time) bool {
	h := now.Hour()
	return h >= e.settings.WindowStartHour && h < e.settings.WindowEndHour
}

func (e *Engine) inScheduleWindow(now time.Time) bool {
	if !e.schedule.Enabled {
		return false
	}
	start := e.schedule.StartHour*60 + e.schedule.StartMinute
	duration := e.schedule.DurationHours*60 + e.schedule.DurationMinutes
	if duration <= 0 {
		return false
	}
	minuteOfDay := now.Hour()*60 + now.Minute()
	end := start + duration
	if end <= 24*60 {
		return minuteOfDay >= start && minuteOfDay < end
	}
	// Window wraps past midnight.
	return minuteOfDay >= start || minuteOfDay < end-24*60
}

func (e *Engine) backwashDue(now time.Time) bool {
	if e.settings.BackwashInterval <= 0 || e.settings.BackwashDuration <= 0 {
		return false
	}
	return now.Sub(e.lastBackwash) >= e.settings.BackwashInterval
}

func (e *Engine) logStatus(now time.Time, state State) {
	st := e.pump.Status()
	fields := logrus.Fields{
		"state":   state,
		"running": st.IsRunning,
		"mode":    st.Mode.String(),
		"runtime": st.DailyRuntimeMinutes,
	}
	if p, ok := e.prices.Current(now); ok {
		fields["price"] = p.String()
	}
	logrus.WithFields(fields).Info("scheduler: status")
}
