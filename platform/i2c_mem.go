package platform

import (
	"errors"
	"sync"
)

// MemChip emulates a register-file I2C device with 16-bit big-endian
// register addresses and 8-bit values, the addressing scheme used by
// clock synthesizer chips. Intended for host-side tests.
type MemChip struct {
	mu   sync.Mutex
	regs []byte

	// Addr, when non-zero, rejects transactions for any other address.
	Addr uint16

	// FailWrites makes the next N write transactions fail.
	FailWrites int
	// FailReads makes the next N read transactions fail.
	FailReads int

	// Transaction bookkeeping for assertions.
	WriteCount  int
	MaxWriteLen int
	WriteSizes  []int
}

var errMemChipNack = errors.New("platform: memchip nack")

// NewMemChip creates a chip with a register file of the given size.
func NewMemChip(size int) *MemChip {
	return &MemChip{regs: make([]byte, size)}
}

// Poke sets a register directly, bypassing the bus.
func (m *MemChip) Poke(reg uint16, val uint8) {
	m.mu.Lock()
	m.regs[reg] = val
	m.mu.Unlock()
}

// Peek reads a register directly, bypassing the bus.
func (m *MemChip) Peek(reg uint16) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg]
}

func (m *MemChip) Tx(addr uint16, w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Addr != 0 && addr != m.Addr {
		return errMemChipNack
	}
	if len(w) < 2 {
		return errMemChipNack
	}
	reg := int(w[0])<<8 | int(w[1])

	if len(w) > 2 {
		// Register write.
		m.WriteCount++
		if n := len(w) - 2; n > m.MaxWriteLen {
			m.MaxWriteLen = n
		}
		m.WriteSizes = append(m.WriteSizes, len(w)-2)
		if m.FailWrites > 0 {
			m.FailWrites--
			return errMemChipNack
		}
		if reg+len(w)-2 > len(m.regs) {
			return errMemChipNack
		}
		copy(m.regs[reg:], w[2:])
		return nil
	}

	// Register read.
	if m.FailReads > 0 {
		m.FailReads--
		return errMemChipNack
	}
	if reg+len(r) > len(m.regs) {
		return errMemChipNack
	}
	copy(r, m.regs[reg:])
	return nil
}
