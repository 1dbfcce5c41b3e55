// Package notifications serves the per-user notification feed.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/rudra1in/facultyapp-sub000/internal/chat"
	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

var log = logger.New("notifications")

// Feed stores notifications and pushes new ones to their owner.
type Feed struct {
	db  database.DBInterface
	bus chat.Publisher
}

func NewFeed(db database.DBInterface, bus chat.Publisher) *Feed {
	return &Feed{db: db, bus: bus}
}

// Create stores n and publishes it on its owner's topic.
func (f *Feed) Create(ctx context.Context, n *models.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification has no recipient")
	}
	if err := f.db.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	e, err := pubsub.NewEvent(pubsub.EventNotificationCreated, pubsub.UserTopic(n.UserID), n)
	if err != nil {
		log.Error("Failed to encode notification %d: %v", n.ID, err)
		return nil
	}
	f.bus.Publish(ctx, e)
	return nil
}

// List returns the viewer's notifications, newest first.
func (f *Feed) List(ctx context.Context, viewer models.Viewer) ([]*models.Notification, error) {
	list, err := f.db.ListNotifications(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}

// MarkRead flags one of the viewer's notifications as read.
func (f *Feed) MarkRead(ctx context.Context, viewer models.Viewer, id int64) (*models.Notification, error) {
	n, err := f.owned(ctx, "mark notification read", viewer, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := f.db.MarkNotificationRead(ctx, id); err != nil {
		return nil, notFound("mark notification read", err)
	}
	n.Read = true
	return n, nil
}

// Delete removes one of the viewer's notifications. Deleting a notification
// that no longer exists succeeds.
func (f *Feed) Delete(ctx context.Context, viewer models.Viewer, id int64) error {
	_, err := f.owned(ctx, "delete notification", viewer, id)
	if errors.Is(err, chat.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	err = f.db.DeleteNotification(ctx, id)
	if err != nil && !errors.Is(err, database.ErrNotificationNotFound) {
		return fmt.Errorf("deleting notification: %w", err)
	}
	return nil
}

func (f *Feed) owned(ctx context.Context, op string, viewer models.Viewer, id int64) (*models.Notification, error) {
	n, err := f.db.GetNotification(ctx, id)
	if err != nil {
		return nil, notFound(op, err)
	}
	if n.UserID != viewer.ID {
		return nil, &chat.Error{Kind: chat.KindForbidden, Op: op, Msg: "notification belongs to another user"}
	}
	return n, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, database.ErrNotificationNotFound) {
		return &chat.Error{Kind: chat.KindNotFound, Op: op, Msg: "notification not found"}
	}
	return fmt.Errorf("%s: %w", op, err)
}
