package idt24x

import (
	"math/bits"
	"time"
)

// Register transactions. The chip uses 16-bit register addresses with 8-bit
// values; every transaction prefixes the big-endian address. Single writes
// carry a bounded retry with a fixed short delay; once the budget is
// exhausted the BusError propagates and the caller must abandon the update
// rather than continue with a partially written register set.

const (
	writeAttempts = 5
	retryDelay    = 150 * time.Microsecond
)

func (d *Device) readReg(reg uint16) (uint8, error) {
	d.w[0] = byte(reg >> 8)
	d.w[1] = byte(reg)
	if err := d.i2c.Tx(d.addr, d.w[:2], d.r[:1]); err != nil {
		return 0, &BusError{Reg: reg, Err: err}
	}
	return d.r[0], nil
}

// readBulk fetches count bytes starting at reg in one transaction. No
// retry: this is the bring-up path and a failure is fatal to init.
func (d *Device) readBulk(reg uint16, buf []byte) error {
	d.w[0] = byte(reg >> 8)
	d.w[1] = byte(reg)
	if err := d.i2c.Tx(d.addr, d.w[:2], buf); err != nil {
		return &BusError{Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) writeReg(reg uint16, val uint8) error {
	d.w[0] = byte(reg >> 8)
	d.w[1] = byte(reg)
	d.w[2] = val
	var err error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if err = d.i2c.Tx(d.addr, d.w[:3], nil); err == nil {
			// Settle interval between consecutive register writes.
			time.Sleep(retryDelay)
			return nil
		}
		time.Sleep(retryDelay)
	}
	return &BusError{Reg: reg, Err: err}
}

// writeMasked updates only the bits covered by mask, taking the remaining
// bits from the mirror, and folds the written value back into the mirror
// on success. The field value is shifted into the mask position.
func (d *Device) writeMasked(reg uint16, val, mask uint8) error {
	prev, ok := d.mirror.get(reg)
	if !ok {
		return ErrMirrorNotSeeded
	}
	full := ((val << bits.TrailingZeros8(mask)) & mask) | (prev &^ mask)
	if err := d.writeReg(reg, full); err != nil {
		return err
	}
	d.mirror.set(reg, full)
	return nil
}

// writeBulk writes vals starting at reg in fixed-size chunks, each chunk
// retried independently. Stops at the first failing chunk.
func (d *Device) writeBulk(reg uint16, vals []byte) error {
	for len(vals) > 0 {
		n := len(vals)
		if n > writeBlockSize {
			n = writeBlockSize
		}
		if err := d.writeChunk(reg, vals[:n]); err != nil {
			return err
		}
		reg += uint16(n)
		vals = vals[n:]
	}
	return nil
}

func (d *Device) writeChunk(reg uint16, chunk []byte) error {
	buf := make([]byte, 2+len(chunk))
	buf[0] = byte(reg >> 8)
	buf[1] = byte(reg)
	copy(buf[2:], chunk)
	var err error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if err = d.i2c.Tx(d.addr, buf, nil); err == nil {
			return nil
		}
		time.Sleep(retryDelay)
	}
	return &BusError{Reg: reg, Err: err}
}
