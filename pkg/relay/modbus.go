package relay

import (
	"fmt"

	"github.com/andersCTO/poolPumpControl/pkg/modbusclient"
)

// ModbusOutputs drives the inverter speed-select inputs over Modbus
// coils instead of physical relays, for drives wired via RS485.
type ModbusOutputs struct {
	client modbusclient.Client
	coils  [3]uint16
}

func NewModbusOutputs(client modbusclient.Client, coils [3]uint16) *ModbusOutputs {
	return &ModbusOutputs{
		client: client,
		coils:  coils,
	}
}

func (m *ModbusOutputs) SetLine(line Line, on bool) error {
	if line < 0 || line >= lineCount {
		return fmt.Errorf("invalid line %d", line)
	}
	_, err := m.client.WriteSingleCoil(m.coils[line], modbusclient.CoilValue(on))
	return err
}
