package pubsub

import (
	"encoding/json"
	"time"
)

// Server → client event types
const (
	EventMessageCreated      = "message.created"
	EventMessageEdited       = "message.edited"
	EventMessageDeleted      = "message.deleted"
	EventUnreadUpdated       = "unread.updated"
	EventNotificationCreated = "notification.created"
)

// Event is the envelope fanned out to subscribers of a topic.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts"`
	// Origin identifies the bus instance that published the event. Relays use
	// it to drop their own echoes.
	Origin string `json:"origin,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(eventType, topic string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Topic:     topic,
		Payload:   data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// ConversationTopic is the topic carrying message events of one conversation.
func ConversationTopic(conversationID string) string {
	return "conversation:" + conversationID
}

// UserTopic is the topic carrying unread and notification events of one user.
func UserTopic(userID string) string {
	return "user:" + userID
}
