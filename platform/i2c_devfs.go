//go:build linux

package platform

import (
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const i2cSlave = 0x0703

// DevfsBus is a raw /dev/i2c-* transport for kernels where no periph.io
// host driver matches. It rebinds the slave address with the I2C_SLAVE
// ioctl whenever a transaction targets a different device.
type DevfsBus struct {
	mu   sync.Mutex
	f    *os.File
	addr uint16
}

func OpenDevfs(path string) (*DevfsBus, error) {
	f, err := os.OpenFile(path, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	return &DevfsBus{f: f, addr: 0xFFFF}, nil
}

func (b *DevfsBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if addr != b.addr {
		if err := unix.IoctlSetInt(int(b.f.Fd()), i2cSlave, int(addr)); err != nil {
			return err
		}
		b.addr = addr
	}
	if len(w) > 0 {
		if _, err := b.f.Write(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		if _, err := io.ReadFull(b.f, r); err != nil {
			return err
		}
	}
	return nil
}

func (b *DevfsBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.f.Close()
}
