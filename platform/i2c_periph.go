package platform

import (
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphBus is an I2C transport backed by periph.io. It serializes
// transactions; multiple devices may share one bus.
type PeriphBus struct {
	mu  sync.Mutex
	bus i2c.BusCloser
}

// OpenPeriph initializes the host drivers and opens the named bus
// ("/dev/i2c-1", "1", or "" for the first available).
func OpenPeriph(name string) (*PeriphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	return &PeriphBus{bus: bus}, nil
}

func (p *PeriphBus) Tx(addr uint16, w, r []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := i2c.Dev{Addr: addr, Bus: p.bus}
	return d.Tx(w, r)
}

func (p *PeriphBus) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bus.Close()
}
