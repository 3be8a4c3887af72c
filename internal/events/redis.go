package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/multimart/multimart/backend/go-services/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisBus publishes events on "auth:events:<clientID>" so that every
// service replica holding a store for the client sees them.
type RedisBus struct {
	client *redis.Client
	prefix string
}

func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	if prefix == "" {
		prefix = "auth:events:"
	}
	return &RedisBus{client: client, prefix: prefix}
}

func (b *RedisBus) channel(clientID string) string {
	return b.prefix + clientID
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel(ev.ClientID), payload).Err()
}

// Subscribe returns once the subscription is confirmed by the server.
func (b *RedisBus) Subscribe(ctx context.Context, clientID string, fn func(Event)) (func(), error) {
	ps := b.client.Subscribe(ctx, b.channel(clientID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", clientID, err)
	}
	ch := ps.Channel()
	go func() {
		for msg := range ch {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warnf("events: dropping malformed payload on %s: %v", msg.Channel, err)
				continue
			}
			fn(ev)
		}
	}()
	return func() { _ = ps.Close() }, nil
}
