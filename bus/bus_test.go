package bus

import (
	"context"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan *Message, d time.Duration) *Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(d):
		return nil
	}
}

func expectNone(t *testing.T, ch <-chan *Message, d time.Duration) {
	t.Helper()
	select {
	case m := <-ch:
		t.Errorf("unexpected message on %v", m.Topic)
	case <-time.After(d):
	}
}

func topicsEqual(a, b Topic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(8)
	pub := b.NewConnection("pub")
	subC := b.NewConnection("sub")
	defer pub.Disconnect()
	defer subC.Disconnect()

	sub := subC.Subscribe(T("refclock", "rate", "post"))
	pub.Publish(pub.NewMessage(T("refclock", "rate", "post"), map[string]any{"rate_hz": 25_000_000}, false))

	m := recv(t, sub.Channel(), time.Second)
	if m == nil {
		t.Fatal("no message delivered")
	}
	if !topicsEqual(m.Topic, T("refclock", "rate", "post")) {
		t.Errorf("topic = %v", m.Topic)
	}

	// Non-matching topics stay silent.
	pub.Publish(pub.NewMessage(T("refclock", "rate", "pre"), nil, false))
	expectNone(t, sub.Channel(), 50*time.Millisecond)
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(8)
	pub := b.NewConnection("pub")
	subC := b.NewConnection("sub")
	defer pub.Disconnect()
	defer subC.Disconnect()

	pub.Publish(pub.NewMessage(T("config", "clk"), map[string]any{"bus": "i2c1"}, true))

	// Late subscriber still sees the retained config.
	sub := subC.Subscribe(T("config", "clk"))
	m := recv(t, sub.Channel(), time.Second)
	if m == nil {
		t.Fatal("retained message not delivered")
	}
	p := m.Payload.(map[string]any)
	if p["bus"] != "i2c1" {
		t.Errorf("payload = %#v", p)
	}
}

func TestRetainedClear(t *testing.T) {
	b := NewBus(8)
	conn := b.NewConnection("c")
	defer conn.Disconnect()

	conn.Publish(conn.NewMessage(T("clk", "output", 2, "state"), map[string]any{"rate_hz": 150}, true))
	// A retained nil payload clears the slot.
	conn.Publish(conn.NewMessage(T("clk", "output", 2, "state"), nil, true))

	sub := conn.Subscribe(T("clk", "output", 2, "state"))
	expectNone(t, sub.Channel(), 50*time.Millisecond)
}

func TestWildcardSingleLevel(t *testing.T) {
	b := NewBus(8)
	conn := b.NewConnection("c")
	defer conn.Disconnect()

	sub := conn.Subscribe(T("clk", "output", "+", "state"))

	conn.Publish(conn.NewMessage(T("clk", "output", 0, "state"), 0, false))
	conn.Publish(conn.NewMessage(T("clk", "output", 2, "state"), 2, false))
	conn.Publish(conn.NewMessage(T("clk", "state"), nil, false)) // wrong depth

	for _, want := range []int{0, 2} {
		m := recv(t, sub.Channel(), time.Second)
		if m == nil {
			t.Fatalf("missing message for output %d", want)
		}
		if m.Payload != want {
			t.Errorf("payload = %v, want %d", m.Payload, want)
		}
	}
	expectNone(t, sub.Channel(), 50*time.Millisecond)
}

func TestWildcardMultiLevel(t *testing.T) {
	b := NewBus(8)
	conn := b.NewConnection("c")
	defer conn.Disconnect()

	sub := conn.Subscribe(T("clk", "#"))

	conn.Publish(conn.NewMessage(T("clk"), 1, false))
	conn.Publish(conn.NewMessage(T("clk", "state"), 2, false))
	conn.Publish(conn.NewMessage(T("clk", "output", 2, "control", "set_rate"), 3, false))
	conn.Publish(conn.NewMessage(T("refclock", "rate", "post"), 4, false))

	got := 0
	for i := 0; i < 3; i++ {
		if m := recv(t, sub.Channel(), time.Second); m != nil {
			got++
			if m.Payload == 4 {
				t.Error("multi-level wildcard leaked a refclock message")
			}
		}
	}
	if got != 3 {
		t.Errorf("received %d messages, want 3", got)
	}
	expectNone(t, sub.Channel(), 50*time.Millisecond)
}

func TestWildcardRetainedDelivery(t *testing.T) {
	b := NewBus(8)
	conn := b.NewConnection("c")
	defer conn.Disconnect()

	conn.Publish(conn.NewMessage(T("clk", "output", 0, "state"), 0, true))
	conn.Publish(conn.NewMessage(T("clk", "output", 2, "state"), 2, true))

	sub := conn.Subscribe(T("clk", "output", "+", "state"))
	seen := map[any]bool{}
	for i := 0; i < 2; i++ {
		m := recv(t, sub.Channel(), time.Second)
		if m == nil {
			t.Fatal("retained messages not delivered through wildcard")
		}
		seen[m.Payload] = true
	}
	if !seen[0] || !seen[2] {
		t.Errorf("retained payloads seen: %v", seen)
	}
}

func TestRequestReply(t *testing.T) {
	b := NewBus(8)
	server := b.NewConnection("clk")
	client := b.NewConnection("ui")
	defer server.Disconnect()
	defer client.Disconnect()

	reqSub := server.Subscribe(T("clk", "control", "dump"))
	go func() {
		req := <-reqSub.Channel()
		server.Reply(req, map[string]any{"ok": true}, false)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := client.RequestWait(ctx, client.NewMessage(T("clk", "control", "dump"), nil, false))
	if err != nil {
		t.Fatalf("RequestWait: %v", err)
	}
	p := reply.Payload.(map[string]any)
	if p["ok"] != true {
		t.Errorf("reply payload = %#v", p)
	}
}

func TestRequestTimeout(t *testing.T) {
	b := NewBus(8)
	client := b.NewConnection("ui")
	defer client.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.RequestWait(ctx, client.NewMessage(T("clk", "control", "dump"), nil, false))
	if err == nil {
		t.Fatal("expected timeout error with no responder")
	}
}

func TestTopicInvalidTokenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("T accepted a non-comparable token")
		}
	}()
	T("clk", []string{"not", "comparable"})
}
