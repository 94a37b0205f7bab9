package ws

import (
	"context"
	"encoding/json"

	"prolance_backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

const backplaneChannel = "realtime:events"

type backplaneEnvelope struct {
	Channel string          `json:"channel"`
	Event   json.RawMessage `json:"event"`
}

// RedisBackplane relays publishes through redis pub/sub so every
// instance's hub sees every event. Publish goes to redis; a
// subscriber goroutine feeds received envelopes into the local hub.
type RedisBackplane struct {
	client *redis.Client
	hub    *Manager
}

func NewRedisBackplane(client *redis.Client, hub *Manager) *RedisBackplane {
	return &RedisBackplane{client: client, hub: hub}
}

func (b *RedisBackplane) Publish(channel string, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(backplaneEnvelope{Channel: channel, Event: raw})
	if err != nil {
		return err
	}
	return b.client.Publish(context.Background(), backplaneChannel, payload).Err()
}

func (b *RedisBackplane) IsAvailable() bool {
	return b.client.Ping(context.Background()).Err() == nil
}

// Run consumes the pub/sub channel until the context is cancelled.
func (b *RedisBackplane) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, backplaneChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env backplaneEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Warn("malformed backplane envelope", "error", err.Error())
				continue
			}
			var event any
			if err := json.Unmarshal(env.Event, &event); err != nil {
				continue
			}
			_ = b.hub.Publish(env.Channel, event)
		}
	}
}
