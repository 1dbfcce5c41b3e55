package models

import "time"

// Conversation is a two-party conversation keyed by its canonical id
type Conversation struct {
	ID             string    `json:"id"`
	Participants   [2]string `json:"participants"`
	Support        bool      `json:"support"`
	Archived       bool      `json:"archived"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// HasParticipant tells whether userID is one of the two participants
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Other returns the participant that is not userID. When userID is not a
// participant the first participant is returned.
func (c *Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// ChatListEntry is the per-user projection of one conversation. It is
// derived on every read and never stored.
type ChatListEntry struct {
	ConversationID       string    `json:"conversation_id"`
	OtherParticipantID   string    `json:"other_participant_id"`
	OtherParticipantName string    `json:"other_participant_name"`
	PreviewText          string    `json:"preview_text"`
	LastActivityAt       time.Time `json:"last_activity_at"`
	UnreadCount          int       `json:"unread_count"`
	Support              bool      `json:"support"`
}

// NotificationState is the read marker of one user in one conversation
type NotificationState struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	LastReadAt     time.Time `json:"last_read_at"`
	UnreadCount    int       `json:"unread_count"`
}
