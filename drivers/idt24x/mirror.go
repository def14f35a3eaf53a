package idt24x

// regMirror shadows the registers the driver read-modify-writes: the DSM
// integer/fractional high bytes, the enable/disable byte pair, Q0's
// first-stage divider byte and the per-output high bits of the Q1-Q3
// dividers. It always holds the value most recently read from or written
// to hardware for those addresses; masked writes take their "other bits"
// from here, never from the wire.
type regMirror struct {
	vals map[uint16]uint8
}

func (m *regMirror) get(reg uint16) (uint8, bool) {
	if m.vals == nil {
		return 0, false
	}
	v, ok := m.vals[reg]
	return v, ok
}

func (m *regMirror) set(reg uint16, v uint8) {
	if m.vals == nil {
		m.vals = make(map[uint16]uint8)
	}
	m.vals[reg] = v
}
