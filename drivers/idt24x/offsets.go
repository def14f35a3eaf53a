package idt24x

// registerOffsets resolves the asymmetric per-output register layout.
// Q0 carries a two-stage integer-only divider (first-stage code plus 16-bit
// second stage); Q1-Q3 share an 18-bit integer / 28-bit fractional layout
// that differs only in base address. The asymmetry is structural to the
// chip, not a driver choice.
type registerOffsets struct {
	oe      uint16
	oeMask  uint8
	dis     uint16
	disMask uint8

	// Q1-Q3 fractional layout.
	n1716         uint16
	n1716Mask     uint8
	n158          uint16
	n70           uint16
	nfrac2724     uint16
	nfrac2724Mask uint8
	nfrac2316     uint16
	nfrac158      uint16
	nfrac70       uint16

	// Q0 two-stage layout.
	ns1     uint16
	ns1Mask uint8
	ns2158  uint16
	ns270   uint16
}

// offsetsFor returns the register layout for one output (0-3).
func offsetsFor(output uint8) (registerOffsets, error) {
	if output >= NumOutputs {
		return registerOffsets{}, ErrInvalidOutput
	}
	off := registerOffsets{
		oe:      regOutEn,
		oeMask:  1 << output,
		dis:     regQDis,
		disMask: 1 << output,
	}
	if output == 0 {
		off.ns1 = regNS1Q0
		off.ns1Mask = ns1Q0Mask
		off.ns2158 = regNS2Q0158
		off.ns270 = regNS2Q070
		return off, nil
	}
	n := regNQ11716 + nQxStride*uint16(output-1)
	frac := regNFracQ1274 + nFracQxStride*uint16(output-1)
	off.n1716 = n
	off.n1716Mask = nQx1716Mask
	off.n158 = n + 1
	off.n70 = n + 2
	off.nfrac2724 = frac
	off.nfrac2724Mask = nFracQx274Mask
	off.nfrac2316 = frac + 1
	off.nfrac158 = frac + 2
	off.nfrac70 = frac + 3
	return off, nil
}
