// Package provision decodes configuration messages from the mobile app
// and applies them to storage and the running engine. One tagged message
// type covers wifi credentials, the run schedule and the system settings.
package provision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/andersCTO/poolPumpControl/pkg/alarm"
	"github.com/andersCTO/poolPumpControl/pkg/scheduler"
	"github.com/andersCTO/poolPumpControl/pkg/storage"
)

const (
	TypeWifi        = "wifi"
	TypeSchedule    = "schedule"
	TypeSettings    = "settings"
	TypeClearAlarms = "clearAlarms"
)

const (
	maxSSIDLen     = 32
	maxPasswordLen = 64
)

// Message is the single inbound message shape. Type selects which of the
// optional payloads must be present.
type Message struct {
	Type     string                   `json:"type"`
	Wifi     *storage.WifiCredentials `json:"wifi,omitempty"`
	Schedule *storage.ScheduleConfig  `json:"schedule,omitempty"`
	Settings *storage.SystemSettings  `json:"settings,omitempty"`
}

// Result is published back on the result topic after every message.
type Result struct {
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Engine is the part of the scheduler the provisioner pushes applied
// settings to.
type Engine interface {
	SetSettings(scheduler.Settings)
	SetScheduleConfig(storage.ScheduleConfig)
}

type Handler struct {
	store  *storage.Store
	engine Engine
	alarms *alarm.ActiveAlarms

	// OnSettings, when set, observes the full persisted settings after a
	// successful settings write. The app tracks the timezone through it.
	OnSettings func(storage.SystemSettings)
}

func NewHandler(store *storage.Store, engine Engine, alarms *alarm.ActiveAlarms) *Handler {
	return &Handler{
		store:  store,
		engine: engine,
		alarms: alarms,
	}
}

// Handle decodes, validates and applies one message. The returned Result
// is always usable for publishing, also on error.
func (h *Handler) Handle(ctx context.Context, payload []byte) Result {
	var msg Message
	err := json.Unmarshal(payload, &msg)
	if err != nil {
		logrus.Errorf("provision: decode message: %s", err)
		return Result{Type: msg.Type, OK: false, Error: fmt.Sprintf("decode message: %s", err)}
	}

	err = h.apply(ctx, msg)
	if err != nil {
		logrus.Errorf("provision: apply %s: %s", msg.Type, err)
		return Result{Type: msg.Type, OK: false, Error: err.Error()}
	}
	return Result{Type: msg.Type, OK: true}
}

func (h *Handler) apply(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeWifi:
		if msg.Wifi == nil {
			return fmt.Errorf("missing wifi payload")
		}
		err := validateWifi(*msg.Wifi)
		if err != nil {
			return err
		}
		return h.store.SaveWifiCredentials(ctx, *msg.Wifi)

	case TypeSchedule:
		if msg.Schedule == nil {
			return fmt.Errorf("missing schedule payload")
		}
		err := validateSchedule(*msg.Schedule)
		if err != nil {
			return err
		}
		err = h.store.SaveScheduleConfig(ctx, *msg.Schedule)
		if err != nil {
			return err
		}
		h.engine.SetScheduleConfig(*msg.Schedule)
		return nil

	case TypeSettings:
		if msg.Settings == nil {
			return fmt.Errorf("missing settings payload")
		}
		err := validateSettings(*msg.Settings)
		if err != nil {
			return err
		}
		err = h.store.SaveSettings(ctx, *msg.Settings)
		if err != nil {
			return err
		}
		h.engine.SetSettings(scheduler.SettingsFrom(*msg.Settings))
		if h.OnSettings != nil {
			h.OnSettings(*msg.Settings)
		}
		return nil

	case TypeClearAlarms:
		if h.alarms.Clear() {
			logrus.Info("provision: cleared active alarms")
		}
		return nil

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func validateWifi(w storage.WifiCredentials) error {
	if len(w.SSID) == 0 || len(w.SSID) > maxSSIDLen {
		return fmt.Errorf("ssid must be 1 to %d bytes", maxSSIDLen)
	}
	if len(w.Password) > maxPasswordLen {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordLen)
	}
	return nil
}

func validateSchedule(c storage.ScheduleConfig) error {
	if c.StartHour < 0 || c.StartHour > 23 {
		return fmt.Errorf("startHour out of range: %d", c.StartHour)
	}
	if c.StartMinute < 0 || c.StartMinute > 59 {
		return fmt.Errorf("startMinute out of range: %d", c.StartMinute)
	}
	if c.DurationHours < 0 || c.DurationMinutes < 0 || c.DurationMinutes > 59 {
		return fmt.Errorf("invalid duration %dh%dm", c.DurationHours, c.DurationMinutes)
	}
	if c.DurationHours*60+c.DurationMinutes <= 0 {
		return fmt.Errorf("schedule duration must be positive")
	}
	if c.DurationHours*60+c.DurationMinutes > 24*60 {
		return fmt.Errorf("schedule duration exceeds a day")
	}
	return nil
}

func validateSettings(s storage.SystemSettings) error {
	if s.MinRuntimeHours < 0 || s.MinRuntimeHours > 24 {
		return fmt.Errorf("minRuntimeHours out of range: %d", s.MinRuntimeHours)
	}
	if s.MaxRuntimeHours < 1 || s.MaxRuntimeHours > 24 {
		return fmt.Errorf("maxRuntimeHours out of range: %d", s.MaxRuntimeHours)
	}
	if s.MinRuntimeHours > s.MaxRuntimeHours {
		return fmt.Errorf("minRuntimeHours %d exceeds maxRuntimeHours %d", s.MinRuntimeHours, s.MaxRuntimeHours)
	}
	if s.BackwashIntervalDays < 1 {
		return fmt.Errorf("backwashIntervalDays must be positive: %d", s.BackwashIntervalDays)
	}
	if s.BackwashDurationMinutes < 1 || s.BackwashDurationMinutes > 60 {
		return fmt.Errorf("backwashDurationMinutes out of range: %d", s.BackwashDurationMinutes)
	}
	if s.LowPriceThreshold.IsNegative() || s.HighPriceThreshold.IsNegative() {
		return fmt.Errorf("price thresholds must not be negative")
	}
	if !s.LowPriceThreshold.LessThan(s.HighPriceThreshold) {
		return fmt.Errorf("lowPriceThreshold must be below highPriceThreshold")
	}
	if s.TimezoneOffset < -12 || s.TimezoneOffset > 14 {
		return fmt.Errorf("timezoneOffset out of range: %d", s.TimezoneOffset)
	}
	return nil
}
