// Package platform provides I2C transports for the host side: a periph.io
// backed bus, a raw /dev/i2c-* bus, and an in-memory register-file chip
// for tests. All of them satisfy the tinygo drivers.I2C Tx shape.
package platform

import (
	"sync"

	"tinygo.org/x/drivers"
)

// I2CBusFactory resolves a bus ID from configuration to a transport.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// Factory is a map-backed I2CBusFactory.
type Factory struct {
	mu    sync.Mutex
	buses map[string]drivers.I2C
}

func NewFactory() *Factory {
	return &Factory{buses: make(map[string]drivers.I2C)}
}

func (f *Factory) Register(id string, bus drivers.I2C) {
	f.mu.Lock()
	f.buses[id] = bus
	f.mu.Unlock()
}

func (f *Factory) ByID(id string) (drivers.I2C, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buses[id]
	return b, ok
}
