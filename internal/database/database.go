package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Clock supplies the store's notion of "now"
type Clock func() time.Time

// NewMonotonicClock wraps wall so that every reading is at microsecond
// precision, which is what PostgreSQL timestamps can hold, and strictly later
// than the previous one. A wall clock stepping backwards yields last+1µs.
func NewMonotonicClock(wall Clock) Clock {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func() time.Time {
		now := wall().UTC().Truncate(time.Microsecond)

		mu.Lock()
		defer mu.Unlock()
		if !now.After(last) {
			now = last.Add(time.Microsecond)
		}
		last = now
		return now
	}
}

var systemClock = NewMonotonicClock(time.Now)

// SystemClock is the default store clock. Truncation drops Go's monotonic
// reading, so ordering across readings comes from NewMonotonicClock instead.
func SystemClock() time.Time {
	return systemClock()
}

// Option configures a store
type Option func(*storeOptions)

type storeOptions struct {
	clock Clock
}

// WithClock replaces the store clock, mostly for tests
func WithClock(c Clock) Option {
	return func(o *storeOptions) {
		o.clock = c
	}
}

func applyOptions(opts []Option) storeOptions {
	o := storeOptions{clock: SystemClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DBInterface is the persisted state of the messaging core: one conversation
// record per canonical id, an append-only message log keyed by
// (conversation id, message id), read markers keyed by (user, conversation),
// and the generic notification feed. Every timestamp it records comes from
// the store's own clock.
type DBInterface interface {
	// Conversation methods

	// CreateConversationIfAbsent atomically creates the conversation unless one
	// with the same id exists, and returns the stored record. created reports
	// whether this call inserted it.
	CreateConversationIfAbsent(ctx context.Context, id string, participants [2]string, support bool) (conv *models.Conversation, created bool, err error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	ListSupportConversations(ctx context.Context) ([]*models.Conversation, error)

	// Message methods

	// AppendMessage assigns the next message id and createdAt, stores the
	// message as active and advances the conversation's lastActivityAt.
	AppendMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error)
	// GetMessageByID returns the message in any state.
	GetMessageByID(ctx context.Context, id int64) (*models.Message, error)
	// UpdateMessageContent replaces the content of an active message and sets
	// editedAt. Deleted and missing messages yield ErrMessageNotFound.
	UpdateMessageContent(ctx context.Context, id int64, content string) (*models.Message, error)
	// SoftDeleteMessage marks the message deleted, a no-op when it already is,
	// and recomputes lastActivityAt of the owning conversation.
	SoftDeleteMessage(ctx context.Context, id int64) (*models.Conversation, error)
	// PurgeMessage erases the message row and recomputes lastActivityAt.
	PurgeMessage(ctx context.Context, id int64) (*models.Conversation, error)
	// ListMessages returns the active messages in ascending id order.
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
	// LatestActiveMessage returns nil when the conversation has no active message.
	LatestActiveMessage(ctx context.Context, conversationID string) (*models.Message, error)
	// CountUnread counts active messages created after the given time that
	// were not sent by userID.
	CountUnread(ctx context.Context, conversationID, userID string, after time.Time) (int, error)

	// Read-state methods

	// GetReadState returns a zero LastReadAt when the user never read the conversation.
	GetReadState(ctx context.Context, userID, conversationID string) (*models.NotificationState, error)
	// AdvanceReadState moves lastReadAt forward to now; it never moves it back.
	AdvanceReadState(ctx context.Context, userID, conversationID string) (*models.NotificationState, error)

	// Notification feed methods
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error)
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	DeleteNotification(ctx context.Context, id int64) error

	Close() error
}

type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	Memory     DatabaseType = "memory"
)

func NewDatabase(ctx context.Context, dbType DatabaseType, connStr string, opts ...Option) (DBInterface, error) {
	switch dbType {
	case PostgreSQL:
		db, err := NewPostgresDB(connStr, opts...)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
		return db, nil
	case Memory:
		return NewMemoryDB(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
