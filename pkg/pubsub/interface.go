package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChannelRealmEvents is the per-realm channel carrying client-facing events.
const ChannelRealmEvents = "realm:%d:events"

// RealmEventsChannel returns the event channel name for a realm.
func RealmEventsChannel(realmID int64) string {
	return fmt.Sprintf(ChannelRealmEvents, realmID)
}

// Event represents a message published to the event bus.
type Event struct {
	Type      string          `json:"type"`
	Op        string          `json:"op"`
	RealmID   int64           `json:"realm_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType, op string, realmID int64, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Op:        op,
		RealmID:   realmID,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// UnmarshalPayload unmarshals the event payload into the given struct.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher publishes events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
	Close() error
}

// channelToTopicAndKey converts a channel into a topic and partition key.
//
//	"realm:7:events" → topic: "realm-events", key: "7"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 || parts[0] != "realm" || parts[2] == "" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return "", "", fmt.Errorf("invalid realm id in channel %s: %w", channel, err)
	}
	return parts[0] + "-" + parts[2], parts[1], nil
}
