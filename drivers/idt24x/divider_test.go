package idt24x

import (
	"errors"
	"testing"
)

func TestCalcDividers_PrefersLargestVCOBelowOptimum(t *testing.T) {
	// 150 MHz with a 50 MHz PFD: even dividers 20 and 22 both land the
	// VCO in-window below the optimum; 22 (3.3 GHz) wins.
	divs, err := CalcDividers(150_000_000, 50_000_000)
	if err != nil {
		t.Fatalf("CalcDividers: %v", err)
	}
	if divs.VCO != 3_300_000_000 {
		t.Errorf("VCO = %d, want 3300000000", divs.VCO)
	}
	if divs.NInt[1] != 11 {
		t.Errorf("NInt[1] = %d, want 11", divs.NInt[1])
	}
	if divs.DSMInt != 66 || divs.DSMFrac != 0 {
		t.Errorf("DSM = %d + %d/2^21, want 66 + 0", divs.DSMInt, divs.DSMFrac)
	}
}

func TestCalcDividers_ExactOptimumWins(t *testing.T) {
	// 175 MHz: divider 20 hits the optimum 3.5 GHz exactly; divider 18
	// (3.15 GHz) is also below but farther away.
	divs, err := CalcDividers(175_000_000, 50_000_000)
	if err != nil {
		t.Fatalf("CalcDividers: %v", err)
	}
	if divs.VCO != 3_500_000_000 {
		t.Errorf("VCO = %d, want 3500000000", divs.VCO)
	}
	if divs.NInt[1] != 10 {
		t.Errorf("NInt[1] = %d, want 10", divs.NInt[1])
	}
	if divs.DSMInt != 70 {
		t.Errorf("DSMInt = %d, want 70", divs.DSMInt)
	}
}

func TestCalcDividers_AboveOptimumWhenNothingBelowFits(t *testing.T) {
	// 299 MHz: the only in-window even divider is 12 (3.588 GHz), above
	// the optimum.
	divs, err := CalcDividers(299_000_000, 50_000_000)
	if err != nil {
		t.Fatalf("CalcDividers: %v", err)
	}
	if divs.VCO != 3_588_000_000 {
		t.Errorf("VCO = %d, want 3588000000", divs.VCO)
	}
	if divs.NInt[1] != 6 {
		t.Errorf("NInt[1] = %d, want 6", divs.NInt[1])
	}
}

func TestCalcDividers_FractionalFeedback(t *testing.T) {
	// 150 MHz against a 40 MHz PFD: 3.3 GHz / 40 MHz = 82.5, so the
	// fractional field carries exactly half of 2^21.
	divs, err := CalcDividers(150_000_000, 40_000_000)
	if err != nil {
		t.Fatalf("CalcDividers: %v", err)
	}
	if divs.DSMInt != 82 {
		t.Errorf("DSMInt = %d, want 82", divs.DSMInt)
	}
	if divs.DSMFrac != 1<<20 {
		t.Errorf("DSMFrac = %d, want %d", divs.DSMFrac, 1<<20)
	}
}

func TestCalcDividers_NoDividerInRange(t *testing.T) {
	// 690 MHz: the smallest even divider (6) already overshoots the VCO
	// ceiling, so no solution exists.
	_, err := CalcDividers(690_000_000, 50_000_000)
	if !errors.Is(err, ErrNoDividerInRange) {
		t.Errorf("err = %v, want ErrNoDividerInRange", err)
	}
}

func TestCalcDividers_ZeroPFD(t *testing.T) {
	_, err := CalcDividers(150_000_000, 0)
	if !errors.Is(err, ErrNoReference) {
		t.Errorf("err = %v, want ErrNoReference", err)
	}
}

func TestCalcDividers_ZeroTarget(t *testing.T) {
	_, err := CalcDividers(0, 50_000_000)
	if !errors.Is(err, ErrRateOutOfRange) {
		t.Errorf("err = %v, want ErrRateOutOfRange", err)
	}
}

func TestCalcDividers_FeedbackReconstructsVCO(t *testing.T) {
	// The integer+fractional feedback divider must reproduce the VCO to
	// within one fractional LSB of the PFD.
	const pfd = 40_000_000
	for _, target := range []uint64{
		100_000_000, 148_500_000, 150_000_000, 156_250_000,
		200_000_000, 250_000_000, 299_000_000,
	} {
		divs, err := CalcDividers(target, pfd)
		if err != nil {
			t.Errorf("CalcDividers(%d): %v", target, err)
			continue
		}
		recon := uint64(divs.DSMInt)*pfd + uint64(divs.DSMFrac)*pfd>>21
		if recon > divs.VCO {
			t.Errorf("target %d: reconstructed VCO %d above actual %d", target, recon, divs.VCO)
			continue
		}
		if divs.VCO-recon > pfd>>21+1 {
			t.Errorf("target %d: VCO error %d exceeds one fractional LSB", target, divs.VCO-recon)
		}
	}
}

func TestPhaseDetectorFreq(t *testing.T) {
	if got := PhaseDetectorFreq(40_000_000, false); got != 80_000_000 {
		t.Errorf("doubler on: got %d, want 80000000", got)
	}
	if got := PhaseDetectorFreq(40_000_000, true); got != 40_000_000 {
		t.Errorf("doubler off: got %d, want 40000000", got)
	}
}
