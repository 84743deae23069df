package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// SignalBus implements domain.SignalBus using Redis Pub/Sub. Channel names
// are namespaced with the client prefix.
type SignalBus struct {
	c *Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{c: c}
}

// Publish sends a raw payload to a Pub/Sub channel.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.c.rdb.Publish(ctx, sb.c.key(channel), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads published on channel. The
// subscription and the returned channel are closed when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	name := sb.c.key(channel)
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = sb.c.rdb.PSubscribe(ctx, name)
	} else {
		pubsub = sb.c.rdb.Subscribe(ctx, name)
	}

	// Wait for the subscription confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// ReportPublisher is a report sink that publishes each cycle report as JSON
// on domain.ChannelCycles.
type ReportPublisher struct {
	bus domain.SignalBus
}

// NewReportPublisher wraps bus as a report sink.
func NewReportPublisher(bus domain.SignalBus) *ReportPublisher {
	return &ReportPublisher{bus: bus}
}

// Name implements domain.ReportSink.
func (p *ReportPublisher) Name() string { return "redis_bus" }

// Record implements domain.ReportSink.
func (p *ReportPublisher) Record(ctx context.Context, r *domain.CycleReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: marshal report: %w", err)
	}
	return p.bus.Publish(ctx, domain.ChannelCycles, payload)
}

var (
	_ domain.SignalBus  = (*SignalBus)(nil)
	_ domain.ReportSink = (*ReportPublisher)(nil)
)
