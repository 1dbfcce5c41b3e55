package database

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

// MemoryDB keeps all state in process memory. Conversations are independent:
// each one carries its own lock, and creation goes through sync.Map's
// LoadOrStore so concurrent creators converge on one record.
type MemoryDB struct {
	clock Clock

	conversations sync.Map // canonical id -> *memConversation
	messages      sync.Map // message id -> *memConversation
	seq           atomic.Int64

	readMu     sync.Mutex
	readStates map[readKey]time.Time

	notifMu       sync.Mutex
	notifications map[int64]*models.Notification
	notifSeq      int64
}

type readKey struct {
	userID         string
	conversationID string
}

type memConversation struct {
	mu   sync.RWMutex
	conv models.Conversation
	log  []*models.Message
}

var _ DBInterface = (*MemoryDB)(nil)

func NewMemoryDB(opts ...Option) *MemoryDB {
	o := applyOptions(opts)
	return &MemoryDB{
		clock:         o.clock,
		readStates:    make(map[readKey]time.Time),
		notifications: make(map[int64]*models.Notification),
	}
}

func (db *MemoryDB) CreateConversationIfAbsent(ctx context.Context, id string, participants [2]string, support bool) (*models.Conversation, bool, error) {
	now := db.clock()
	fresh := &memConversation{conv: models.Conversation{
		ID:             id,
		Participants:   participants,
		Support:        support,
		CreatedAt:      now,
		LastActivityAt: now,
	}}

	actual, loaded := db.conversations.LoadOrStore(id, fresh)
	mc := actual.(*memConversation)

	mc.mu.RLock()
	defer mc.mu.RUnlock()
	conv := mc.conv
	return &conv, !loaded, nil
}

func (db *MemoryDB) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	mc, err := db.conversation(id)
	if err != nil {
		return nil, err
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	conv := mc.conv
	return &conv, nil
}

func (db *MemoryDB) ListConversationsByUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return db.filterConversations(func(c *models.Conversation) bool {
		return c.HasParticipant(userID)
	}), nil
}

func (db *MemoryDB) ListSupportConversations(ctx context.Context) ([]*models.Conversation, error) {
	return db.filterConversations(func(c *models.Conversation) bool {
		return c.Support
	}), nil
}

func (db *MemoryDB) filterConversations(keep func(*models.Conversation) bool) []*models.Conversation {
	var convs []*models.Conversation
	db.conversations.Range(func(_, value any) bool {
		mc := value.(*memConversation)
		mc.mu.RLock()
		conv := mc.conv
		mc.mu.RUnlock()
		if keep(&conv) {
			convs = append(convs, &conv)
		}
		return true
	})
	sort.Slice(convs, func(i, j int) bool { return convs[i].ID < convs[j].ID })
	return convs
}

func (db *MemoryDB) AppendMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	mc, err := db.conversation(conversationID)
	if err != nil {
		return nil, err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	msg := &models.Message{
		ID:             db.seq.Add(1),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      db.clock(),
		State:          models.MessageActive,
	}
	mc.log = append(mc.log, msg)
	mc.conv.LastActivityAt = msg.CreatedAt
	db.messages.Store(msg.ID, mc)

	return cloneMessage(msg), nil
}

func (db *MemoryDB) GetMessageByID(ctx context.Context, id int64) (*models.Message, error) {
	_, msg, unlock, err := db.lockMessage(id, false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return cloneMessage(msg), nil
}

func (db *MemoryDB) UpdateMessageContent(ctx context.Context, id int64, content string) (*models.Message, error) {
	_, msg, unlock, err := db.lockMessage(id, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !msg.Active() {
		return nil, ErrMessageNotFound
	}
	editedAt := db.clock()
	msg.Content = content
	msg.EditedAt = &editedAt
	return cloneMessage(msg), nil
}

func (db *MemoryDB) SoftDeleteMessage(ctx context.Context, id int64) (*models.Conversation, error) {
	mc, msg, unlock, err := db.lockMessage(id, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if msg.Active() {
		msg.State = models.MessageDeleted
		msg.Content = ""
		msg.EditedAt = nil
	}
	mc.recomputeLastActivity()
	conv := mc.conv
	return &conv, nil
}

func (db *MemoryDB) PurgeMessage(ctx context.Context, id int64) (*models.Conversation, error) {
	mc, _, unlock, err := db.lockMessage(id, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for i, m := range mc.log {
		if m.ID == id {
			mc.log = append(mc.log[:i], mc.log[i+1:]...)
			break
		}
	}
	db.messages.Delete(id)
	mc.recomputeLastActivity()
	conv := mc.conv
	return &conv, nil
}

func (db *MemoryDB) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	mc, err := db.conversation(conversationID)
	if err != nil {
		return nil, err
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	messages := make([]*models.Message, 0, len(mc.log))
	for _, m := range mc.log {
		if m.Active() {
			messages = append(messages, cloneMessage(m))
		}
	}
	return messages, nil
}

func (db *MemoryDB) LatestActiveMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	mc, err := db.conversation(conversationID)
	if err != nil {
		return nil, err
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if m := mc.latestActive(); m != nil {
		return cloneMessage(m), nil
	}
	return nil, nil
}

func (db *MemoryDB) CountUnread(ctx context.Context, conversationID, userID string, after time.Time) (int, error) {
	mc, err := db.conversation(conversationID)
	if err != nil {
		return 0, err
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	count := 0
	for _, m := range mc.log {
		if m.Active() && m.SenderID != userID && m.CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}

func (db *MemoryDB) GetReadState(ctx context.Context, userID, conversationID string) (*models.NotificationState, error) {
	db.readMu.Lock()
	defer db.readMu.Unlock()

	return &models.NotificationState{
		UserID:         userID,
		ConversationID: conversationID,
		LastReadAt:     db.readStates[readKey{userID, conversationID}],
	}, nil
}

func (db *MemoryDB) AdvanceReadState(ctx context.Context, userID, conversationID string) (*models.NotificationState, error) {
	now := db.clock()

	db.readMu.Lock()
	defer db.readMu.Unlock()

	key := readKey{userID, conversationID}
	if now.After(db.readStates[key]) {
		db.readStates[key] = now
	}
	return &models.NotificationState{
		UserID:         userID,
		ConversationID: conversationID,
		LastReadAt:     db.readStates[key],
	}, nil
}

func (db *MemoryDB) CreateNotification(ctx context.Context, n *models.Notification) error {
	db.notifMu.Lock()
	defer db.notifMu.Unlock()

	db.notifSeq++
	n.ID = db.notifSeq
	n.CreatedAt = db.clock()
	stored := *n
	db.notifications[n.ID] = &stored
	return nil
}

func (db *MemoryDB) ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	db.notifMu.Lock()
	defer db.notifMu.Unlock()

	var list []*models.Notification
	for _, n := range db.notifications {
		if n.UserID == userID {
			c := *n
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (db *MemoryDB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	db.notifMu.Lock()
	defer db.notifMu.Unlock()

	n, ok := db.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	c := *n
	return &c, nil
}

func (db *MemoryDB) MarkNotificationRead(ctx context.Context, id int64) error {
	db.notifMu.Lock()
	defer db.notifMu.Unlock()

	n, ok := db.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (db *MemoryDB) DeleteNotification(ctx context.Context, id int64) error {
	db.notifMu.Lock()
	defer db.notifMu.Unlock()

	if _, ok := db.notifications[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(db.notifications, id)
	return nil
}

func (db *MemoryDB) Close() error {
	return nil
}

func (db *MemoryDB) conversation(id string) (*memConversation, error) {
	v, ok := db.conversations.Load(id)
	if !ok {
		return nil, ErrConversationNotFound
	}
	return v.(*memConversation), nil
}

// lockMessage finds a message and locks its conversation for reading or
// writing. The caller must invoke unlock.
func (db *MemoryDB) lockMessage(id int64, write bool) (*memConversation, *models.Message, func(), error) {
	v, ok := db.messages.Load(id)
	if !ok {
		return nil, nil, nil, ErrMessageNotFound
	}
	mc := v.(*memConversation)

	unlock := mc.mu.RUnlock
	if write {
		mc.mu.Lock()
		unlock = mc.mu.Unlock
	} else {
		mc.mu.RLock()
	}

	// The log is in id order.
	i := sort.Search(len(mc.log), func(i int) bool { return mc.log[i].ID >= id })
	if i == len(mc.log) || mc.log[i].ID != id {
		unlock()
		return nil, nil, nil, ErrMessageNotFound
	}
	return mc, mc.log[i], unlock, nil
}

func (mc *memConversation) latestActive() *models.Message {
	for i := len(mc.log) - 1; i >= 0; i-- {
		if mc.log[i].Active() {
			return mc.log[i]
		}
	}
	return nil
}

func (mc *memConversation) recomputeLastActivity() {
	if m := mc.latestActive(); m != nil {
		mc.conv.LastActivityAt = m.CreatedAt
		return
	}
	mc.conv.LastActivityAt = mc.conv.CreatedAt
}

func cloneMessage(m *models.Message) *models.Message {
	c := *m
	if m.EditedAt != nil {
		t := *m.EditedAt
		c.EditedAt = &t
	}
	return &c
}
