package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const EventsChannel = "dispatch:events"

// RedisBroker relays events through Redis pub/sub so every instance's hub
// sees every event. When Redis rejects a publish the event is still delivered
// to local listeners.
type RedisBroker struct {
	redis   *redis.Client
	hub     *Hub
	channel string
	logger  *slog.Logger
}

func NewRedisBroker(redisClient *redis.Client, hub *Hub, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		redis:   redisClient,
		hub:     hub,
		channel: EventsChannel,
		logger:  logger,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = b.hub.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("failed to encode event", "type", e.Type, "error", err)
		return
	}
	if err := b.redis.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Warn("event publish failed, delivering locally", "type", e.Type, "error", err)
		b.hub.Deliver(e)
	}
}

// Run forwards events from Redis to the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.redis.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.logger.Warn("skipping malformed event", "error", err)
				continue
			}
			b.hub.Deliver(e)
		}
	}
}
