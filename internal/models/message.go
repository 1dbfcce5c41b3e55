package models

import (
	"time"
)

// MessageState is the lifecycle state of a message. Deleted is terminal.
type MessageState string

const (
	MessageActive  MessageState = "active"
	MessageDeleted MessageState = "deleted"
)

// Message represents a chat message in a conversation
type Message struct {
	ID             int64        `json:"id"`
	ConversationID string       `json:"conversation_id"`
	SenderID       string       `json:"sender_id"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"created_at"`
	EditedAt       *time.Time   `json:"edited_at,omitempty"`
	State          MessageState `json:"state"`
}

// Active reports whether the message is visible to readers
func (m *Message) Active() bool {
	return m.State != MessageDeleted
}

// Edited reports whether the message content was changed after creation
func (m *Message) Edited() bool {
	return m.EditedAt != nil
}

// MessageRequest is the structure for message creation requests
type MessageRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Content        string `json:"content"`
}

// EditMessageRequest is the body of a message edit
type EditMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse is what we return to clients
type MessageResponse struct {
	ID             int64      `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name,omitempty"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	Edited         bool       `json:"edited"`
}

// NewMessageResponse pairs a message with its sender's display name
func NewMessageResponse(m *Message, senderName string) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     senderName,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		EditedAt:       m.EditedAt,
		Edited:         m.Edited(),
	}
}
