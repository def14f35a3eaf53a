package idt24x

import "errors"

var (
	// Sentinel errors.
	ErrInvalidOutput    = errors.New("idt24x: output number out of range")
	ErrNotImplemented   = errors.New("idt24x: divider synthesis only implemented for output Q2")
	ErrNoReference      = errors.New("idt24x: no reference frequency configured")
	ErrNoDividerInRange = errors.New("idt24x: no even feedback divider reaches the VCO range")
	ErrRateOutOfRange   = errors.New("idt24x: requested rate out of range")
	ErrSettingsLength   = errors.New("idt24x: settings image has wrong length")

	// ErrMirrorNotSeeded means a masked write was attempted before the
	// bring-up read populated the register mirror. Proceeding would
	// corrupt the unmasked bits of the target register.
	ErrMirrorNotSeeded = errors.New("idt24x: register mirror not seeded; call Configure first")
)

// BusError wraps a transport failure after the retry budget is exhausted.
// It is fatal to the in-progress update, not to the device instance.
type BusError struct {
	Reg uint16
	Err error
}

func (e *BusError) Error() string {
	return "idt24x: bus error at register 0x" + hex16(e.Reg) + ": " + e.Err.Error()
}

func (e *BusError) Unwrap() error { return e.Err }

const hexDigits = "0123456789abcdef"

func hex16(v uint16) string {
	var b [4]byte
	for i := 3; i >= 0; i-- {
		b[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(b[:])
}
