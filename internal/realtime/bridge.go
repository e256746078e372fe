package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope is the wire form events take on the redis channel.
type envelope struct {
	Origin string          `json:"origin"`
	UserID string          `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// Bridge carries events between instances over a redis pub/sub channel. Each
// instance publishes everything it emits and replays what other instances
// published to its local connections; its own messages are skipped by origin
// id. The presence registry itself stays process-local.
type Bridge struct {
	client   *redislib.Client
	channel  string
	origin   string
	registry *Registry
	logger   *zap.Logger
}

func NewBridge(client *redislib.Client, channel string, registry *Registry, logger *zap.Logger) *Bridge {
	if channel == "" {
		channel = "taskboard:events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		client:   client,
		channel:  channel,
		origin:   uuid.NewString(),
		registry: registry,
		logger:   logger,
	}
}

// Publish implements Publisher.
func (b *Bridge) Publish(userID, event string, data []byte) {
	payload, err := json.Marshal(envelope{
		Origin: b.origin,
		UserID: userID,
		Event:  event,
		Data:   data,
	})
	if err != nil {
		b.logger.Error("encode bridge envelope", zap.Error(err))
		return
	}
	if err := b.client.Publish(context.Background(), b.channel, payload).Err(); err != nil {
		b.logger.Warn("publish event", zap.String("event", event), zap.Error(err))
	}
}

// Run subscribes to the bridge channel and delivers foreign events to local
// connections until the context is cancelled.
func (b *Bridge) Run(ctx context.Context, hub *Hub) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn("bridge subscription closed")
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("decode bridge envelope", zap.Error(err))
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			hub.Deliver(env.UserID, env.Event, env.Data)
		}
	}
}
