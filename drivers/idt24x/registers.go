// Package idt24x provides constants for register addresses and bitfields used
// in the operation of the IDT 8T49N24x clock synthesizer.
package idt24x

const (
	// 7-bit I2C address strap default.
	AddressDefault = 0x6C

	// NumConfigRegisters is the size of the chip's register file; a raw
	// settings image supplied at bring-up must be exactly this long.
	NumConfigRegisters = 0x317

	// Chunk size for bulk register writes.
	writeBlockSize = 32

	// --- Shared (non output-specific) registers, 16-bit addresses ---

	regDblDis   = 0x006C // reference doubler disable, bit 0
	dblDisMask  = 0x01
	regDSMInt8  = 0x0025 // DSM integer bit 8 (shared register)
	dsmInt8Mask = 0x01
	regDSMInt70 = 0x0026 // DSM integer bits 7:0

	regDSMFrac2016  = 0x0028 // DSM fractional bits 20:16 (shared register)
	dsmFrac2016Mask = 0x1F
	regDSMFrac158   = 0x0029
	regDSMFrac70    = 0x002A

	regOutEn = 0x0039 // per-output enable bits, one per output
	regQDis  = 0x006F // per-output disable bits, one per output

	// --- Q0 two-stage integer divider ---

	regNS1Q0    = 0x003F // first-stage code, bits 1:0
	ns1Q0Mask   = 0x03
	regNS2Q0158 = 0x0040 // second stage bits 15:8
	regNS2Q070  = 0x0041 // second stage bits 7:0; effective divide is twice this

	// --- Q1-Q3 fractional dividers ---
	// N_Qx integer fields start at Q1 and repeat with a 3-byte stride;
	// NFRAC_Qx fields start at Q1 and repeat with a 4-byte stride.

	regNQ11716     = 0x0042 // integer bits 17:16
	nQx1716Mask    = 0x03
	nQxStride      = 3
	regNFracQ1274  = 0x0057 // fractional bits 27:24
	nFracQx274Mask = 0x0F
	nFracQxStride  = 4
)

// Output frequency limits for this chip family.
const (
	MinFreq = 1_000_000
	MaxFreq = 300_000_000
)

// VCO operating window and search floor, in Hz.
const (
	vcoMin        uint64 = 2_999_997_000
	vcoMax        uint64 = 4_000_004_000
	vcoOpt        uint64 = 3_500_000_000
	minIntDivider uint64 = 6
)

// NumOutputs is the number of independent output channels (Q0-Q3).
const NumOutputs = 4
