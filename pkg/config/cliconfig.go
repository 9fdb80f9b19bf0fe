package config

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

type CliConfig struct {
	StateFile  string `default:"/var/lib/poolpump/state.db"`
	SerialFile string `default:"/sys/firmware/devicetree/base/serial-number"`

	MQTTAddress string `default:":1883"`

	PriceAPIURL string `default:"https://api.energidataservice.dk"`
	PriceArea   string `default:"DK1"`

	// Driver selects how the relay lines are reached: gpio, modbus or
	// none for a dry run without hardware.
	Driver string `default:"gpio"`

	GPIOChip         string `default:"gpiochip0"`
	RelayPinNight    int    `default:"21"`
	RelayPinDay      int    `default:"19"`
	RelayPinBackwash int    `default:"18"`

	ModbusAddress      string `default:"192.168.1.50:502"`
	ModbusSlaveID      int    `default:"1"`
	ModbusCoilNight    int    `default:"0"`
	ModbusCoilDay      int    `default:"1"`
	ModbusCoilBackwash int    `default:"2"`

	MeterDevice    string `default:""`
	MeterModel     string `default:"garo-GNM3D-MBUS"`
	MeterPrimaryID string `default:"1"`

	Serial string

	LogLevel string `default:"info"`

	mutex sync.RWMutex
}

func (c *CliConfig) SerialID() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.Serial
}

func (c *CliConfig) LoadSerial() error {
	id, err := os.ReadFile(c.SerialFile)
	if err != nil {
		return fmt.Errorf("error reading serialfile: %w", err)
	}
	c.mutex.Lock()
	c.Serial = string(bytes.TrimSpace(bytes.Trim(id, "\x00")))
	c.mutex.Unlock()
	return nil
}
