package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mythichub/nexus/internal/model"
)

// Bus is the publish/subscribe transport used for cross-process
// coordination. Delivery is at-least-once; ordering is guaranteed only
// within a single topic per publishing process.
//
// Subscribe returns a receive channel that stays open for the lifetime of
// the subscription and a cancel function that ends it. After a transport
// reconnect, implementations inject an EventBusReconnected marker so
// consumers rebuild derived views instead of trusting accumulated deltas.
type Bus interface {
	Publish(ctx context.Context, topic string, eventType model.EventType, payload any) error
	Subscribe(ctx context.Context, topic string) (<-chan model.Event, func())
	Close() error
}

// newEvent builds the wire envelope for a payload
func newEvent(topic string, eventType model.EventType, timestamp time.Time, payload any) (model.Event, error) {
	event := model.Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Type:      eventType,
		Timestamp: timestamp,
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return model.Event{}, err
		}
		event.Payload = data
	}

	return event, nil
}

// reconnectedEvent is the locally injected marker event
func reconnectedEvent(topic string, timestamp time.Time) model.Event {
	return model.Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Type:      model.EventBusReconnected,
		Timestamp: timestamp,
	}
}
