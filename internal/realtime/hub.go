package realtime

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Publisher forwards an event addressed to a user to other running instances.
type Publisher interface {
	Publish(userID, event string, data []byte)
}

// Hub fans events out to every live connection registered for a user. Delivery
// is fire-and-forget: a user with no connections is a silent no-op, and a slow
// connection drops events rather than stalling the caller. Per-user ordering
// follows EmitToUser call order because each connection consumes from a single
// FIFO buffer.
type Hub struct {
	registry  *Registry
	publisher Publisher
	logger    *zap.Logger
}

func NewHub(registry *Registry, publisher Publisher, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		registry:  registry,
		publisher: publisher,
		logger:    logger,
	}
}

// EmitToUser pushes (event, payload) to each of the user's live connections on
// this instance, then hands the event to the publisher (when configured) so
// connections on other instances receive it too. Marshalling failures and
// dropped sends are logged, never surfaced: by the time fan-out runs the
// mutation has committed.
func (h *Hub) EmitToUser(userID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encode event payload",
			zap.String("event", event),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	h.Deliver(userID, event, data)

	if h.publisher != nil {
		h.publisher.Publish(userID, event, data)
	}
}

// Deliver pushes an already-encoded event to the user's local connections.
func (h *Hub) Deliver(userID, event string, data []byte) {
	for _, conn := range h.registry.ConnectionsFor(userID) {
		if !conn.Send(Event{Name: event, Data: data}) {
			h.logger.Debug("event dropped",
				zap.String("event", event),
				zap.String("user_id", userID))
		}
	}
}
