// Package clk exposes an IDT 8T49N24x clock synthesizer on the message
// bus: configuration via config/clk, per-output rate control under
// clk/output/<n>/control/*, and reference change notifications under
// refclock/rate/*.
package clk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"clkdev-go/bus"
	"clkdev-go/drivers/idt24x"
	"clkdev-go/errcode"
	"clkdev-go/platform"
)

func Run(ctx context.Context, conn *bus.Connection, i2cFactory platform.I2CBusFactory) {
	s := &service{conn: conn, i2cFactory: i2cFactory}
	s.loop(ctx)
}

type service struct {
	conn       *bus.Connection
	i2cFactory platform.I2CBusFactory

	dev *idt24x.Device
	cfg Config
}

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "clk"})
	outSub := s.conn.Subscribe(bus.Topic{"clk", "output", "+", "control", "+"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"clk", "control", "+"})
	refSub := s.conn.Subscribe(bus.Topic{"refclock", "rate", "+"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(outSub)
	defer s.conn.Unsubscribe(ctrlSub)
	defer s.conn.Unsubscribe(refSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg Config
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-outSub.Channel():
			s.handleOutputControl(msg)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case msg := <-refSub.Channel():
			s.handleRefChange(msg)
		}
	}
}

func (s *service) applyConfig(cfg Config) error {
	i2c, ok := s.i2cFactory.ByID(cfg.Bus)
	if !ok {
		return &errcode.E{C: errcode.UnknownBus, Op: "clk.config", Msg: cfg.Bus}
	}

	var settings []byte
	if cfg.Settings != "" {
		b, err := base64.StdEncoding.DecodeString(cfg.Settings)
		if err != nil {
			return &errcode.E{C: errcode.InvalidConfig, Op: "clk.config", Msg: "settings not base64", Err: err}
		}
		settings = b
	}

	dev := idt24x.New(i2c)
	err := dev.Configure(idt24x.Config{
		Address:  cfg.Addr,
		XtalFreq: cfg.XtalHz,
		Settings: settings,
		Observer: s.onPhase,
	})
	if err != nil {
		return &errcode.E{C: mapCode(err), Op: "clk.config", Err: err}
	}
	if cfg.RefHz != 0 {
		dev.SetReference(cfg.RefHz)
	}

	s.dev = dev
	s.cfg = cfg
	for n := uint8(0); n < idt24x.NumOutputs; n++ {
		s.publishOutputState(n)
	}
	return nil
}

// clk/output/<n:int>/control/<method>
func (s *service) handleOutputControl(msg *bus.Message) {
	if len(msg.Topic) < 5 {
		return
	}
	n, ok := asInt(msg.Topic[2])
	if !ok || n < 0 || n >= idt24x.NumOutputs {
		s.replyErr(msg, errcode.InvalidOutput, "invalid output address")
		return
	}
	method, _ := msg.Topic[4].(string)

	if s.dev == nil {
		s.replyErr(msg, errcode.NotReady, "not configured")
		return
	}
	output := uint8(n)

	switch method {
	case "set_rate":
		var p struct {
			RateHz uint64 `json:"rate_hz"`
		}
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload, err.Error())
			return
		}
		if err := s.dev.SetRate(output, p.RateHz); err != nil {
			s.replyErr(msg, mapCode(err), err.Error())
			s.publishState("error", "set_rate_failed", err)
			return
		}
		s.publishOutputState(output)
		s.publishState("ready", "rate_set", nil)
		s.replyOK(msg, map[string]any{"rate_hz": p.RateHz})

	case "get_rate":
		rate, err := s.dev.Rate(output)
		if err != nil {
			s.replyErr(msg, mapCode(err), err.Error())
			return
		}
		s.replyOK(msg, map[string]any{"rate_hz": rate, "enabled": rate != 0})

	case "round_rate":
		var p struct {
			RateHz uint64 `json:"rate_hz"`
		}
		if err := decodeJSON(msg.Payload, &p); err != nil {
			s.replyErr(msg, errcode.InvalidPayload, err.Error())
			return
		}
		rate, err := s.dev.RoundRate(output, p.RateHz)
		if err != nil {
			s.replyErr(msg, mapCode(err), err.Error())
			return
		}
		s.replyOK(msg, map[string]any{"rate_hz": rate})

	default:
		s.replyErr(msg, errcode.InvalidTopic, "unknown method")
	}
}

// clk/control/<method>
func (s *service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 3 {
		return
	}
	method, _ := msg.Topic[2].(string)

	if s.dev == nil {
		s.replyErr(msg, errcode.NotReady, "not configured")
		return
	}

	switch method {
	case "dump":
		dump, err := s.dev.DumpRegisters()
		if err != nil {
			s.replyErr(msg, mapCode(err), err.Error())
			return
		}
		s.replyOK(msg, map[string]any{"map": dump})
	default:
		s.replyErr(msg, errcode.InvalidTopic, "unknown method")
	}
}

// refclock/rate/<stage> with payload {"rate_hz": N}
func (s *service) handleRefChange(msg *bus.Message) {
	if len(msg.Topic) < 3 || s.dev == nil {
		return
	}
	stage, _ := msg.Topic[2].(string)
	var ev idt24x.RefChangeEvent
	switch stage {
	case "pre":
		ev = idt24x.PreRateChange
	case "post":
		ev = idt24x.PostRateChange
	case "abort":
		ev = idt24x.AbortRateChange
	default:
		return
	}

	var p struct {
		RateHz uint64 `json:"rate_hz"`
	}
	if err := decodeJSON(msg.Payload, &p); err != nil {
		s.replyErr(msg, errcode.InvalidPayload, err.Error())
		return
	}

	if err := s.dev.RefClockChange(ev, p.RateHz); err != nil {
		s.replyErr(msg, mapCode(err), err.Error())
		s.publishState("error", "refclock_change_failed", err)
		return
	}
	if ev == idt24x.PostRateChange {
		s.publishState("ready", "refclock_changed", nil)
	}
	s.replyOK(msg, nil)
}

// -----------------------------------------------------------------------------
// Publishing
// -----------------------------------------------------------------------------

func (s *service) publishState(level, status string, err error) {
	payload := map[string]any{"level": level, "status": status, "ts_ms": time.Now().UnixMilli()}
	if err != nil {
		payload["error"] = err.Error()
		payload["code"] = string(mapCode(err))
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"clk", "state"}, payload, true))
}

func (s *service) publishOutputState(output uint8) {
	rate, err := s.dev.Rate(output)
	if err != nil {
		return
	}
	payload := map[string]any{"rate_hz": rate, "enabled": rate != 0}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"clk", "output", int(output), "state"}, payload, true))
}

// onPhase runs synchronously inside device calls made from the loop
// goroutine, so it may publish without further locking.
func (s *service) onPhase(p idt24x.Phase) {
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"clk", "phase"}, map[string]any{"phase": p.String()}, false))
}

func (s *service) replyOK(req *bus.Message, extra map[string]any) {
	if len(req.ReplyTo) == 0 {
		return
	}
	m := map[string]any{"ok": true}
	for k, v := range extra {
		m[k] = v
	}
	s.conn.Reply(req, m, false)
}

func (s *service) replyErr(req *bus.Message, code errcode.Code, e string) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, map[string]any{"ok": false, "code": string(code), "error": e}, false)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func mapCode(err error) errcode.Code {
	var be *idt24x.BusError
	switch {
	case err == nil:
		return errcode.OK
	case errors.Is(err, idt24x.ErrInvalidOutput):
		return errcode.InvalidOutput
	case errors.Is(err, idt24x.ErrNotImplemented):
		return errcode.NotImplemented
	case errors.Is(err, idt24x.ErrNoReference):
		return errcode.NoReference
	case errors.Is(err, idt24x.ErrNoDividerInRange):
		return errcode.NoDivider
	case errors.Is(err, idt24x.ErrRateOutOfRange):
		return errcode.RateOutOfRange
	case errors.Is(err, idt24x.ErrSettingsLength):
		return errcode.InvalidConfig
	case errors.Is(err, idt24x.ErrMirrorNotSeeded):
		return errcode.NotReady
	case errors.As(err, &be):
		return errcode.BusFault
	default:
		return errcode.Of(err)
	}
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n := 0
		if v == "" {
			return 0, false
		}
		for _, c := range v {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		return n, true
	default:
		return 0, false
	}
}
