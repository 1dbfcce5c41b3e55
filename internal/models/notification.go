package models

import "time"

// Notification is an entry of the generic notification feed
type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Read      bool      `json:"read"`
	Muted     bool      `json:"muted"`
	CreatedAt time.Time `json:"created_at"`
}
