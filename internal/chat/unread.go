package chat

import (
	"context"
	"fmt"

	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

const (
	newMessageCategory = "Messages"
	newMessageType     = "new_message"
	newMessageContext  = "Direct Message"
)

// UnreadUpdate is the payload of an unread.updated event.
type UnreadUpdate struct {
	ConversationID string `json:"conversation_id"`
	UnreadCount    int    `json:"unread_count"`
}

// Coordinator tracks read state per user and conversation. Unread counts are
// derived from the read marker on every call and never stored.
type Coordinator struct {
	db      database.DBInterface
	dir     Directory
	bus     Publisher
	alerter Alerter
}

func NewCoordinator(db database.DBInterface, dir Directory, bus Publisher, alerter Alerter) *Coordinator {
	return &Coordinator{db: db, dir: dir, bus: bus, alerter: alerter}
}

// OnMessageAppended refreshes the unread view of the participant who did not
// send msg and raises a feed notification for them.
func (c *Coordinator) OnMessageAppended(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	recipient := conv.Other(msg.SenderID)
	c.pushUnread(ctx, recipient, conv)

	if c.alerter == nil {
		return
	}
	n := &models.Notification{
		UserID:   recipient,
		Category: newMessageCategory,
		Type:     newMessageType,
		Message:  fmt.Sprintf("%s sent you a message", c.dir.ResolveName(msg.SenderID)),
		Context:  newMessageContext,
	}
	if err := c.alerter.Create(ctx, n); err != nil {
		log.Warn("Failed to create message notification for %s: %v", recipient, err)
	}
}

// OnMessageRemoved refreshes the unread view of the recipient after msg left
// the active log.
func (c *Coordinator) OnMessageRemoved(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	c.pushUnread(ctx, conv.Other(msg.SenderID), conv)
}

// MarkRead advances the viewer's read marker of a conversation to now. The
// marker never moves backwards, so repeated calls are harmless.
func (c *Coordinator) MarkRead(ctx context.Context, viewer models.Viewer, conversationID string) (*models.NotificationState, error) {
	conv, err := c.visible(ctx, "mark read", viewer, conversationID)
	if err != nil {
		return nil, err
	}

	state, err := c.db.AdvanceReadState(ctx, viewer.ID, conv.ID)
	if err != nil {
		return nil, storeError("mark read", err)
	}
	if state.UnreadCount, err = c.count(ctx, viewer.ID, conv, state); err != nil {
		return nil, err
	}

	publish(ctx, c.bus, pubsub.EventUnreadUpdated, pubsub.UserTopic(viewer.ID), UnreadUpdate{
		ConversationID: conv.ID,
		UnreadCount:    state.UnreadCount,
	})
	return state, nil
}

// UnreadCount returns the viewer's read state of a conversation.
func (c *Coordinator) UnreadCount(ctx context.Context, viewer models.Viewer, conversationID string) (*models.NotificationState, error) {
	conv, err := c.visible(ctx, "unread count", viewer, conversationID)
	if err != nil {
		return nil, err
	}
	return c.State(ctx, viewer.ID, conv)
}

// State computes the read state of userID in conv without permission checks.
func (c *Coordinator) State(ctx context.Context, userID string, conv *models.Conversation) (*models.NotificationState, error) {
	state, err := c.db.GetReadState(ctx, userID, conv.ID)
	if err != nil {
		return nil, storeError("read state", err)
	}
	if state.UnreadCount, err = c.count(ctx, userID, conv, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Coordinator) count(ctx context.Context, userID string, conv *models.Conversation, state *models.NotificationState) (int, error) {
	if !conv.LastActivityAt.After(state.LastReadAt) {
		return 0, nil
	}
	n, err := c.db.CountUnread(ctx, conv.ID, userID, state.LastReadAt)
	if err != nil {
		return 0, storeError("unread count", err)
	}
	return n, nil
}

func (c *Coordinator) pushUnread(ctx context.Context, userID string, conv *models.Conversation) {
	state, err := c.State(ctx, userID, conv)
	if err != nil {
		log.Warn("Failed to compute unread count of %s in %s: %v", userID, conv.ID, err)
		return
	}
	publish(ctx, c.bus, pubsub.EventUnreadUpdated, pubsub.UserTopic(userID), UnreadUpdate{
		ConversationID: conv.ID,
		UnreadCount:    state.UnreadCount,
	})
}

func (c *Coordinator) visible(ctx context.Context, op string, viewer models.Viewer, conversationID string) (*models.Conversation, error) {
	conv, err := c.db.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if !CanView(viewer, conv) {
		return nil, newError(KindForbidden, op, "you are not a participant of this conversation")
	}
	return conv, nil
}
