package idt24x

// Phase identifies the stage an in-progress frequency update has reached.
// An observer watching phases can tell a failed update's blast radius:
// anything at or before ComputingDividers left the hardware untouched.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseComputingDividers
	PhaseWritingVCO
	PhaseWritingChannelDividers
	PhaseWritingEnables
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseComputingDividers:
		return "computing_dividers"
	case PhaseWritingVCO:
		return "writing_vco"
	case PhaseWritingChannelDividers:
		return "writing_channel_dividers"
	case PhaseWritingEnables:
		return "writing_enables"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// RefChangeEvent is the stage of an upstream reference rate change.
type RefChangeEvent uint8

const (
	// PreRateChange announces an upcoming reference change. The device
	// accepts it without touching hardware.
	PreRateChange RefChangeEvent = iota
	// PostRateChange commits the new reference rate and reprograms the
	// dividers against it.
	PostRateChange
	// AbortRateChange cancels an announced change. Nothing was written
	// during the pre stage, so there is nothing to roll back.
	AbortRateChange
)
