// Package chat holds the direct-messaging core: conversation identity, the
// message log, the per-user chat list and unread tracking.
package chat

import (
	"context"

	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

var log = logger.New("chat")

// Directory resolves participant identifiers for the core.
type Directory interface {
	ResolveName(id string) string
	Role(id string) (models.Role, bool)
}

// Publisher fans events out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, e *pubsub.Event)
}

// Alerter receives feed notifications raised by chat activity.
type Alerter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// CanView reports whether viewer may read conv. Participants always can;
// support staff can read every support conversation.
func CanView(viewer models.Viewer, conv *models.Conversation) bool {
	if conv.HasParticipant(viewer.ID) {
		return true
	}
	return viewer.IsSupportStaff() && conv.Support
}

func publish(ctx context.Context, p Publisher, eventType, topic string, payload any) {
	e, err := pubsub.NewEvent(eventType, topic, payload)
	if err != nil {
		log.Error("Failed to encode %s event: %v", eventType, err)
		return
	}
	p.Publish(ctx, e)
}
