package heartbeat

import (
	"context"
	"time"

	"clkdev-go/bus"
)

var (
	topicConfig = bus.Topic{"config", "heartbeat"}
	topicBeat   = bus.Topic{"health", "heartbeat"}
)

// Service periodically publishes a retained liveness document so monitors
// can tell a wedged daemon from an idle one.
type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Publish(conn.NewMessage(topicBeat, nil, true))
			return
		case t := <-tick.C:
			conn.Publish(conn.NewMessage(topicBeat,
				map[string]any{"ts_ms": t.UnixMilli()}, true))
		case msg := <-cfgSub.Channel():
			// Change tick interval if needed.
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval_s"]; ok {
					if interval, ok := iv.(float64); ok && interval > 0 {
						tick.Reset(time.Duration(interval * float64(time.Second)))
					}
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
