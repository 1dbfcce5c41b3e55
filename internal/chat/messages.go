package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

// MessageDeleted is the payload of a message.deleted event.
type MessageDeleted struct {
	ID             int64  `json:"id"`
	ConversationID string `json:"conversation_id"`
	Hard           bool   `json:"hard"`
}

// MessageStore owns the message log of every conversation. Edit and delete
// belong to the original sender only.
type MessageStore struct {
	db       database.DBInterface
	registry *Registry
	unread   *Coordinator
	dir      Directory
	bus      Publisher
}

func NewMessageStore(db database.DBInterface, registry *Registry, unread *Coordinator, dir Directory, bus Publisher) *MessageStore {
	return &MessageStore{db: db, registry: registry, unread: unread, dir: dir, bus: bus}
}

// Append adds a message from the viewer to a conversation. A conversation
// that does not exist yet is created when the viewer is one of the two
// participants its id names.
func (s *MessageStore) Append(ctx context.Context, viewer models.Viewer, conversationID, content string) (*models.Message, error) {
	content, err := plainText("append", content)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewer.ID) {
		return nil, newError(KindForbidden, "append", "you are not a participant of this conversation")
	}

	msg, err := s.db.AppendMessage(ctx, conv.ID, viewer.ID, content)
	if err != nil {
		return nil, storeError("append", err)
	}
	conv.LastActivityAt = msg.CreatedAt

	publish(ctx, s.bus, pubsub.EventMessageCreated, pubsub.ConversationTopic(conv.ID), s.Response(msg))
	s.unread.OnMessageAppended(ctx, conv, msg)
	return msg, nil
}

func (s *MessageStore) conversationFor(ctx context.Context, viewer models.Viewer, conversationID string) (*models.Conversation, error) {
	conv, err := s.db.GetConversation(ctx, conversationID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, database.ErrConversationNotFound) {
		return nil, storeError("append", err)
	}

	participants, perr := Participants(conversationID)
	if perr != nil {
		return nil, newError(KindNotFound, "append", "conversation not found")
	}
	if participants[0] != viewer.ID && participants[1] != viewer.ID {
		return nil, newError(KindForbidden, "append", "you are not a participant of this conversation")
	}
	return s.registry.EnsureConversation(ctx, participants[0], participants[1])
}

// Edit replaces the content of the viewer's own active message.
func (s *MessageStore) Edit(ctx context.Context, viewer models.Viewer, messageID int64, content string) (*models.Message, error) {
	msg, err := s.db.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, storeError("edit", err)
	}
	if !msg.Active() {
		return nil, newError(KindNotFound, "edit", "message not found")
	}
	if err := checkOwner("edit", viewer, msg); err != nil {
		return nil, err
	}
	if content, err = plainText("edit", content); err != nil {
		return nil, err
	}

	edited, err := s.db.UpdateMessageContent(ctx, msg.ID, content)
	if err != nil {
		return nil, storeError("edit", err)
	}

	publish(ctx, s.bus, pubsub.EventMessageEdited, pubsub.ConversationTopic(edited.ConversationID), s.Response(edited))
	return edited, nil
}

// Delete marks the viewer's own message deleted. Deleting an already deleted
// message succeeds without changes.
func (s *MessageStore) Delete(ctx context.Context, viewer models.Viewer, messageID int64) error {
	msg, err := s.owned(ctx, "delete", viewer, messageID)
	if err != nil {
		return err
	}
	if !msg.Active() {
		return nil
	}

	conv, err := s.db.SoftDeleteMessage(ctx, msg.ID)
	if err != nil {
		return storeError("delete", err)
	}
	s.removed(ctx, conv, msg, false)
	return nil
}

// Purge erases the viewer's own message from the log. Its id is not reused.
func (s *MessageStore) Purge(ctx context.Context, viewer models.Viewer, messageID int64) error {
	msg, err := s.owned(ctx, "purge", viewer, messageID)
	if err != nil {
		return err
	}

	conv, err := s.db.PurgeMessage(ctx, msg.ID)
	if err != nil {
		return storeError("purge", err)
	}
	if msg.Active() {
		s.removed(ctx, conv, msg, true)
	}
	return nil
}

// List returns the active messages of a conversation in id order.
func (s *MessageStore) List(ctx context.Context, viewer models.Viewer, conversationID string) ([]*models.Message, error) {
	conv, err := s.registry.Open(ctx, viewer, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := s.db.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, storeError("list messages", err)
	}
	return messages, nil
}

// Response renders msg for clients with its sender's display name.
func (s *MessageStore) Response(msg *models.Message) models.MessageResponse {
	return models.NewMessageResponse(msg, s.dir.ResolveName(msg.SenderID))
}

func (s *MessageStore) owned(ctx context.Context, op string, viewer models.Viewer, messageID int64) (*models.Message, error) {
	msg, err := s.db.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, storeError(op, err)
	}
	if err := checkOwner(op, viewer, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func checkOwner(op string, viewer models.Viewer, msg *models.Message) error {
	if msg.SenderID != viewer.ID {
		return newError(KindForbidden, op, "only the message sender can perform this action")
	}
	return nil
}

func (s *MessageStore) removed(ctx context.Context, conv *models.Conversation, msg *models.Message, hard bool) {
	publish(ctx, s.bus, pubsub.EventMessageDeleted, pubsub.ConversationTopic(conv.ID), MessageDeleted{
		ID:             msg.ID,
		ConversationID: conv.ID,
		Hard:           hard,
	})
	s.unread.OnMessageRemoved(ctx, conv, msg)
}

// plainText rejects blank bodies and replaces invalid UTF-8. Content is never
// interpreted as markup here.
func plainText(op, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", newError(KindEmptyContent, op, "message content is empty")
	}
	return strings.ToValidUTF8(content, "�"), nil
}
