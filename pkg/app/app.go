package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/sirupsen/logrus"

	"github.com/andersCTO/poolPumpControl/pkg/alarm"
	"github.com/andersCTO/poolPumpControl/pkg/config"
	"github.com/andersCTO/poolPumpControl/pkg/meter"
	"github.com/andersCTO/poolPumpControl/pkg/modbusclient"
	"github.com/andersCTO/poolPumpControl/pkg/mqtt"
	"github.com/andersCTO/poolPumpControl/pkg/network"
	"github.com/andersCTO/poolPumpControl/pkg/price"
	"github.com/andersCTO/poolPumpControl/pkg/provision"
	"github.com/andersCTO/poolPumpControl/pkg/pump"
	"github.com/andersCTO/poolPumpControl/pkg/relay"
	"github.com/andersCTO/poolPumpControl/pkg/scheduler"
	"github.com/andersCTO/poolPumpControl/pkg/storage"
)

type App struct {
	wg     *sync.WaitGroup
	config *config.CliConfig

	store       *storage.Store
	pump        *pump.Controller
	engine      *scheduler.Engine
	prices      *price.Cache
	priceClient *price.Client
	net         *network.Monitor
	alarms      *alarm.ActiveAlarms
	broker      *mqttv2.Server
	meterCache  *meter.Cache

	closeOutputs func() error

	mutex sync.RWMutex
	tz    *time.Location
}

func New(config *config.CliConfig) *App {
	return &App{
		wg:         &sync.WaitGroup{},
		config:     config,
		prices:     &price.Cache{},
		net:        &network.Monitor{},
		alarms:     &alarm.ActiveAlarms{},
		meterCache: &meter.Cache{},
		tz:         time.UTC,
	}
}

func (a *App) Start(ctx context.Context) error {
	err := a.config.LoadSerial()
	if err != nil {
		logrus.Warnf("could not read serial: %s", err)
	}

	a.store, err = storage.Open(a.config.StateFile)
	if err != nil {
		return fmt.Errorf("error opening state database: %w", err)
	}

	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("error loading settings: %w", err)
	}
	scheduleCfg, err := a.store.LoadScheduleConfig(ctx)
	if err != nil {
		return fmt.Errorf("error loading schedule config: %w", err)
	}
	a.setTimezone(settings)

	outputs, closeOutputs, err := a.setupOutputs()
	if err != nil {
		return fmt.Errorf("error setting up relay outputs: %w", err)
	}
	a.closeOutputs = closeOutputs

	a.pump = pump.New(relay.NewMapper(outputs, relay.DefaultSettle))
	a.priceClient = price.NewClient(a.config.PriceAPIURL, a.config.PriceArea)

	a.engine = scheduler.New(a.pump, a.prices, a.net)
	a.engine.SetSettings(scheduler.SettingsFrom(settings))
	a.engine.SetScheduleConfig(scheduleCfg)

	a.broker, err = mqtt.Start(ctx, a.wg, a.config.MQTTAddress)
	if err != nil {
		return fmt.Errorf("error starting broker: %w", err)
	}

	handler := provision.NewHandler(a.store, a.engine, a.alarms)
	handler.OnSettings = a.setTimezone
	err = a.broker.Subscribe(mqtt.TopicConfigSet, 1, func(cl *mqttv2.Client, sub packets.Subscription, pk packets.Packet) {
		result := handler.Handle(ctx, pk.Payload)
		b, err := json.Marshal(result)
		if err != nil {
			logrus.Errorf("error marshaling config result: %s", err)
			return
		}
		err = a.broker.Publish(mqtt.TopicConfigResult, b, false, 0)
		if err != nil {
			logrus.Errorf("error publishing config result: %s", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error subscribing to config topic: %w", err)
	}

	a.wg.Add(1)
	go a.priceLoop(ctx)

	a.wg.Add(1)
	go a.tickLoop(ctx)

	if a.config.MeterDevice != "" {
		a.wg.Add(1)
		go a.meterLoop(ctx)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()
		a.shutdown()
	}()
	return nil
}

func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) shutdown() {
	if err := a.pump.Stop(); err != nil {
		logrus.Errorf("error stopping pump on shutdown: %s", err)
	}
	if a.closeOutputs != nil {
		if err := a.closeOutputs(); err != nil {
			logrus.Errorf("error closing relay outputs: %s", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logrus.Errorf("error closing state database: %s", err)
	}
}

func (a *App) setTimezone(s storage.SystemSettings) {
	a.mutex.Lock()
	a.tz = time.FixedZone("pool", s.TimezoneOffset*3600)
	a.mutex.Unlock()
}

func (a *App) localNow() time.Time {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return time.Now().In(a.tz)
}

func (a *App) setupOutputs() (relay.Outputs, func() error, error) {
	switch a.config.Driver {
	case "gpio":
		out, err := relay.NewGPIOOutputs(a.config.GPIOChip, [3]int{
			a.config.RelayPinNight,
			a.config.RelayPinDay,
			a.config.RelayPinBackwash,
		})
		if err != nil {
			return nil, nil, err
		}
		return out, out.Close, nil
	case "modbus":
		handler := modbus.NewTCPClientHandler(a.config.ModbusAddress)
		handler.SlaveId = byte(a.config.ModbusSlaveID)
		client := modbusclient.New(modbus.NewClient(handler), handler.Close)
		out := relay.NewModbusOutputs(client, [3]uint16{
			uint16(a.config.ModbusCoilNight),
			uint16(a.config.ModbusCoilDay),
			uint16(a.config.ModbusCoilBackwash),
		})
		return out, handler.Close, nil
	case "none":
		return relay.NewFakeOutputs(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown relay driver %q", a.config.Driver)
}

// tickLoop drives the scheduler once per minute and publishes status
// after every evaluation.
func (a *App) tickLoop(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(scheduler.TickPeriod)
	defer ticker.Stop()

	state := a.engine.Tick(a.localNow())
	a.publishStatus(state)
	for {
		select {
		case <-ticker.C:
			state = a.engine.Tick(a.localNow())
			a.publishStatus(state)
		case <-ctx.Done():
			return
		}
	}
}

// priceLoop fetches the spot price schedule at startup and then once per
// hour, aligned just after the top of the hour. Connectivity state
// follows the fetch outcome.
func (a *App) priceLoop(ctx context.Context) {
	defer a.wg.Done()
	a.fetchPrices(ctx)
	delay := nextDelay()
	logrus.Debug("scheduling next price fetch in ", delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			timer.Reset(nextDelay())
			a.fetchPrices(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) fetchPrices(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	schedule, err := a.priceClient.FetchToday(ctx, a.localNow())
	if err != nil {
		logrus.Errorf("error fetching prices: %s", err)
		a.net.SetConnected(false)
		a.alarms.Add(alarm.PriceFetchFailed)
		return
	}
	a.prices.Set(schedule, time.Now())
	a.net.SetConnected(true)
	a.alarms.Remove(alarm.PriceFetchFailed)
}

func (a *App) meterLoop(ctx context.Context) {
	defer a.wg.Done()
	m := meter.New(a.config.MeterDevice)
	defer m.Close()

	a.readMeter(m)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.readMeter(m)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) readMeter(m *meter.Mbus) {
	data, err := m.ReadValues(a.config.MeterModel, a.config.MeterPrimaryID)
	if err != nil {
		logrus.Warnf("error reading meter: %s", err)
		a.alarms.Add(alarm.MeterReadFailed)
		return
	}
	a.meterCache.Set(data)
	a.alarms.Remove(alarm.MeterReadFailed)
}

type statusPayload struct {
	Serial    string      `json:"serial,omitempty"`
	State     string      `json:"state"`
	Pump      pump.Status `json:"pump"`
	Connected bool        `json:"connected"`
	Alarms    []string    `json:"alarms"`
	Meter     *meter.Data `json:"meter,omitempty"`
	Time      time.Time   `json:"time"`
}

func (a *App) publishStatus(state scheduler.State) {
	payload := statusPayload{
		Serial:    a.config.SerialID(),
		State:     string(state),
		Pump:      a.pump.Status(),
		Connected: a.net.Connected(),
		Alarms:    a.alarms.Active(),
		Meter:     a.meterCache.Get(),
		Time:      a.localNow(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.Errorf("error marshaling status: %s", err)
		return
	}
	err = a.broker.Publish(mqtt.TopicStatus, b, true, 0)
	if err != nil {
		logrus.Errorf("error publishing status: %s", err)
	}
}
