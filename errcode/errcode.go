package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	BusFault       Code = "bus_error"
	NoDivider      Code = "no_divider_in_range"
	NoReference    Code = "no_reference"
	InvalidOutput  Code = "invalid_output"
	NotImplemented Code = "not_implemented"
	RateOutOfRange Code = "rate_out_of_range"
	InvalidConfig  Code = "invalid_config"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"
	UnknownBus     Code = "unknown_bus"
	NotReady       Code = "not_ready"
	Timeout        Code = "timeout"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
