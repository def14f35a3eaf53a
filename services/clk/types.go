package clk

// Config is the payload expected on config/clk.
type Config struct {
	// Bus is the I2C bus ID resolved through the platform factory.
	Bus string `json:"bus"`

	// Addr is the 7-bit device address; zero selects the chip default.
	Addr uint16 `json:"addr,omitempty"`

	// XtalHz is the crystal frequency. Used as the reference when no
	// input clock is configured or reported.
	XtalHz uint64 `json:"xtal_hz,omitempty"`

	// RefHz is the input clock frequency, taking precedence over the
	// crystal when non-zero.
	RefHz uint64 `json:"ref_hz,omitempty"`

	// Settings is an optional base64-encoded full register image
	// written to the chip at bring-up.
	Settings string `json:"settings,omitempty"`
}
