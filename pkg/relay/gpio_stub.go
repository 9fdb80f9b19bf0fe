//go:build !linux

package relay

import "errors"

// GPIOOutputs is not available on non-Linux platforms.
type GPIOOutputs struct{}

func NewGPIOOutputs(chipName string, pins [3]int) (*GPIOOutputs, error) {
	return nil, errors.New("gpio outputs require linux")
}

func (g *GPIOOutputs) SetLine(line Line, on bool) error {
	return errors.New("gpio outputs require linux")
}

func (g *GPIOOutputs) Close() error {
	return nil
}
