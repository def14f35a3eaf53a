package idt24x

import (
	"sync"

	"tinygo.org/x/drivers"
)

// Config carries the bring-up parameters for a device.
type Config struct {
	// Address is the 7-bit I2C address. Zero selects AddressDefault.
	Address uint16

	// XtalFreq is the crystal frequency in Hz, used as the reference
	// when no input clock has been reported via SetReference.
	XtalFreq uint64

	// Settings is an optional full register image written to the chip
	// before anything else. When present it must be exactly
	// NumConfigRegisters bytes.
	Settings []byte

	// Observer, when non-nil, is called with each phase transition of
	// a frequency update. Called with the device lock held; it must not
	// call back into the device.
	Observer func(Phase)
}

// Device drives one IDT 8T49N24x clock synthesizer over I2C.
type Device struct {
	i2c  drivers.I2C
	addr uint16

	mu     sync.Mutex
	mirror regMirror

	freqs           [NumOutputs]uint64
	refFreq         uint64
	xtalFreq        uint64
	doublerDisabled bool

	observer func(Phase)

	w [3]byte
	r [1]byte
}

// New creates a device handle on the given bus. No bus traffic happens
// until Configure.
func New(i2c drivers.I2C) *Device {
	return &Device{i2c: i2c, addr: AddressDefault}
}

// Configure applies cfg, optionally writes a full settings image, and
// seeds the register mirror from hardware. It must succeed before any
// rate can be set.
func (d *Device) Configure(cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg.Address != 0 {
		d.addr = cfg.Address
	}
	d.xtalFreq = cfg.XtalFreq
	d.observer = cfg.Observer

	if len(cfg.Settings) > 0 {
		if len(cfg.Settings) != NumConfigRegisters {
			return ErrSettingsLength
		}
		if err := d.writeBulk(0, cfg.Settings); err != nil {
			return err
		}
	}

	return d.readFromHW()
}

// readFromHW seeds the mirror with every register the driver later
// read-modify-writes, and captures the doubler state when a crystal
// reference is in play. Must run after any settings image write so the
// mirror reflects what the chip actually holds.
func (d *Device) readFromHW() error {
	seed := []uint16{regDSMInt8, regDSMFrac2016, regOutEn, regQDis, regNS1Q0}
	for output := uint8(1); output < NumOutputs; output++ {
		off, err := offsetsFor(output)
		if err != nil {
			return err
		}
		seed = append(seed, off.n1716, off.nfrac2724)
	}
	for _, reg := range seed {
		v, err := d.readReg(reg)
		if err != nil {
			return err
		}
		d.mirror.set(reg, v)
	}

	if d.xtalFreq == 0 {
		return nil
	}
	v, err := d.readReg(regDblDis)
	if err != nil {
		return err
	}
	d.doublerDisabled = v&dblDisMask != 0
	return nil
}

// SetReference reports the input clock frequency in Hz. A non-zero input
// clock takes precedence over the crystal.
func (d *Device) SetReference(hz uint64) {
	d.mu.Lock()
	d.refFreq = hz
	d.mu.Unlock()
}

func (d *Device) referenceHz() uint64 {
	if d.refFreq != 0 {
		return d.refFreq
	}
	return d.xtalFreq
}

// Rate returns the rate last requested for an output, in Hz. Zero means
// the output is disabled.
func (d *Device) Rate(output uint8) (uint64, error) {
	if output >= NumOutputs {
		return 0, ErrInvalidOutput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freqs[output], nil
}

// RoundRate returns the closest achievable rate to hz. The fractional
// feedback divider reaches any target in range, so the request passes
// through unchanged.
func (d *Device) RoundRate(output uint8, hz uint64) (uint64, error) {
	if output >= NumOutputs {
		return 0, ErrInvalidOutput
	}
	return hz, nil
}

// SetRate requests hz on the given output. Zero disables the output.
// The requested rate is recorded before hardware is touched; on failure
// it is not rolled back, so a retry reprograms from the same request.
func (d *Device) SetRate(output uint8, hz uint64) error {
	if output >= NumOutputs {
		return ErrInvalidOutput
	}
	if hz != 0 && (hz < MinFreq || hz > MaxFreq) {
		return ErrRateOutOfRange
	}
	if hz != 0 && output != 2 {
		return ErrNotImplemented
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.freqs[output] = hz
	return d.setFrequency()
}

// EnableOutput turns one output on or off without touching its dividers.
func (d *Device) EnableOutput(output uint8, enable bool) error {
	if output >= NumOutputs {
		return ErrInvalidOutput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enableOutput(output, enable)
}

// RefClockChange handles one stage of an upstream reference rate change.
// Pre accepts without hardware access; post commits the new rate and
// reprograms; abort is a no-op since pre wrote nothing.
func (d *Device) RefClockChange(ev RefChangeEvent, newRateHz uint64) error {
	switch ev {
	case PreRateChange, AbortRateChange:
		return nil
	case PostRateChange:
		d.mu.Lock()
		defer d.mu.Unlock()
		d.refFreq = newRateHz
		return d.setFrequency()
	}
	return nil
}

func (d *Device) phase(p Phase) {
	if d.observer != nil {
		d.observer(p)
	}
}

// setFrequency reprograms the chip from the recorded output rates.
// Caller holds d.mu.
//
// All divider registers are written before any output enable changes, so
// a mid-sequence bus fault leaves every output in its previous enable
// state rather than running at a half-programmed rate.
func (d *Device) setFrequency() (err error) {
	defer func() {
		if err != nil {
			d.phase(PhaseError)
		}
	}()

	d.phase(PhaseValidating)

	if d.freqs[2] == 0 {
		if err = d.enableOutput(2, false); err != nil {
			return err
		}
		d.phase(PhaseIdle)
		return nil
	}

	ref := d.referenceHz()
	if ref == 0 {
		return ErrNoReference
	}

	d.phase(PhaseComputingDividers)
	divs, err := CalcDividers(d.freqs[2], PhaseDetectorFreq(ref, d.doublerDisabled))
	if err != nil {
		return err
	}

	d.phase(PhaseWritingVCO)
	if err = d.writeMasked(regDSMInt8, uint8(divs.DSMInt>>8), dsmInt8Mask); err != nil {
		return err
	}
	if err = d.writeReg(regDSMInt70, uint8(divs.DSMInt)); err != nil {
		return err
	}
	if err = d.writeMasked(regDSMFrac2016, uint8(divs.DSMFrac>>16), dsmFrac2016Mask); err != nil {
		return err
	}
	if err = d.writeReg(regDSMFrac158, uint8(divs.DSMFrac>>8)); err != nil {
		return err
	}
	if err = d.writeReg(regDSMFrac70, uint8(divs.DSMFrac)); err != nil {
		return err
	}

	d.phase(PhaseWritingChannelDividers)
	if err = d.writeMasked(regNS1Q0, divs.NS1Q0, ns1Q0Mask); err != nil {
		return err
	}
	if err = d.writeReg(regNS2Q0158, uint8(divs.NS2Q0>>8)); err != nil {
		return err
	}
	if err = d.writeReg(regNS2Q070, uint8(divs.NS2Q0)); err != nil {
		return err
	}
	for output := uint8(1); output < NumOutputs; output++ {
		if d.freqs[output] == 0 {
			continue
		}
		if err = d.writeChannelDividers(output, &divs); err != nil {
			return err
		}
	}

	d.phase(PhaseWritingEnables)
	for output := uint8(0); output < NumOutputs; output++ {
		if err = d.enableOutput(output, d.freqs[output] != 0); err != nil {
			return err
		}
	}

	d.phase(PhaseIdle)
	return nil
}

func (d *Device) writeChannelDividers(output uint8, divs *DividerSet) error {
	off, err := offsetsFor(output)
	if err != nil {
		return err
	}
	nint := divs.NInt[output-1]
	nfrac := divs.NFrac[output-1]

	if err := d.writeMasked(off.n1716, uint8(nint>>16), off.n1716Mask); err != nil {
		return err
	}
	if err := d.writeReg(off.n158, uint8(nint>>8)); err != nil {
		return err
	}
	if err := d.writeReg(off.n70, uint8(nint)); err != nil {
		return err
	}
	if err := d.writeMasked(off.nfrac2724, uint8(nfrac>>24), off.nfrac2724Mask); err != nil {
		return err
	}
	if err := d.writeReg(off.nfrac2316, uint8(nfrac>>16)); err != nil {
		return err
	}
	if err := d.writeReg(off.nfrac158, uint8(nfrac>>8)); err != nil {
		return err
	}
	return d.writeReg(off.nfrac70, uint8(nfrac))
}

// enableOutput flips one output's bit in the shared enable and disable
// bytes, preserving the siblings' bits via the mirror. Caller holds d.mu.
func (d *Device) enableOutput(output uint8, enable bool) error {
	off, err := offsetsFor(output)
	if err != nil {
		return err
	}

	oe, ok := d.mirror.get(regOutEn)
	if !ok {
		return ErrMirrorNotSeeded
	}
	dis, ok := d.mirror.get(regQDis)
	if !ok {
		return ErrMirrorNotSeeded
	}

	oe &^= off.oeMask
	if enable {
		oe |= off.oeMask
	}
	dis &^= off.disMask
	if !enable {
		dis |= off.disMask
	}

	if err := d.writeReg(regOutEn, oe); err != nil {
		return err
	}
	d.mirror.set(regOutEn, oe)
	if err := d.writeReg(regQDis, dis); err != nil {
		return err
	}
	d.mirror.set(regQDis, dis)
	return nil
}
