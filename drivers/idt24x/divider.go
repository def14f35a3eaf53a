package idt24x

// DividerSet holds one complete divider solution: the VCO feedback
// divider (integer plus 21-bit fraction) and the per-output channel
// dividers. NInt and NFrac are indexed by output minus one (Q1-Q3);
// Q0 uses the separate two-stage NS1/NS2 fields.
type DividerSet struct {
	DSMInt  uint16
	DSMFrac uint32

	NS1Q0 uint8
	NS2Q0 uint16

	NInt  [3]uint32
	NFrac [3]uint32

	// Solution metadata, not written to hardware.
	VCO uint64
	PFD uint64
}

// PhaseDetectorFreq returns the frequency seen by the phase detector for
// a given reference, accounting for the input doubler.
func PhaseDetectorFreq(refHz uint64, doublerDisabled bool) uint64 {
	if doublerDisabled {
		return refHz
	}
	return refHz * 2
}

// CalcDividers finds an even integer output divider that places the VCO
// inside its operating window, preferring the solution closest to the
// optimum frequency from below; only when no divider lands at or below
// the optimum does it take the largest in-window VCO above it. The
// feedback divider is then derived exactly from vco/pfd, with the
// remainder carried into the 21-bit fractional field.
//
// The returned solution populates the Q2 channel slot (NInt[1]); the
// chip divides the VCO by twice the programmed value, so NInt holds
// half the chosen divider.
func CalcDividers(targetHz, pfdHz uint64) (DividerSet, error) {
	var out DividerSet

	if pfdHz == 0 {
		return out, ErrNoReference
	}
	// Zero is a disable request, not a synthesis target.
	if targetHz == 0 {
		return out, ErrRateOutOfRange
	}

	maxDiv := vcoMax / (targetHz * 2) * 2

	var (
		div        uint64
		bestVCO    uint64
		isLowerVCO bool
	)
	for walk := minIntDivider; walk <= maxDiv; walk += 2 {
		vco := targetHz * walk
		if vco < vcoMin || vco > vcoMax {
			continue
		}
		if vco <= vcoOpt {
			if vco > bestVCO || !isLowerVCO {
				isLowerVCO = true
				div = walk
				bestVCO = vco
			}
		} else if !isLowerVCO && vco > bestVCO {
			div = walk
			bestVCO = vco
		}
	}
	if div == 0 {
		return out, ErrNoDividerInRange
	}

	vco := targetHz * div
	out.NInt[1] = uint32(div / 2)
	out.NFrac[1] = 0
	out.VCO = vco
	out.PFD = pfdHz
	out.DSMInt = uint16(vco / pfdHz)
	rem := vco % pfdHz
	out.DSMFrac = uint32((rem << 21) / pfdHz)
	return out, nil
}
