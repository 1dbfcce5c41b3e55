package chat

import (
	"context"
	"sort"

	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

// PlaceholderPreview is shown for conversations without active messages.
const PlaceholderPreview = "Start a conversation"

// Registry maps users to the conversations they can see.
type Registry struct {
	db     database.DBInterface
	dir    Directory
	unread *Coordinator
}

func NewRegistry(db database.DBInterface, dir Directory, unread *Coordinator) *Registry {
	return &Registry{db: db, dir: dir, unread: unread}
}

// EnsureConversation returns the conversation between a and b, creating it
// on first use. Concurrent callers for the same pair get the same record.
func (r *Registry) EnsureConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	id, err := CanonicalID(a, b)
	if err != nil {
		return nil, err
	}
	participants, _ := Participants(id)

	conv, created, err := r.db.CreateConversationIfAbsent(ctx, id, participants, r.isSupport(participants))
	if err != nil {
		return nil, storeError("ensure conversation", err)
	}
	if created {
		log.Info("Created conversation %s (support=%t)", conv.ID, conv.Support)
	}
	return conv, nil
}

// isSupport flags conversations with a student on either side.
func (r *Registry) isSupport(participants [2]string) bool {
	for _, p := range participants {
		if role, ok := r.dir.Role(p); ok && role == models.RoleStudent {
			return true
		}
	}
	return false
}

// Open loads a conversation the viewer is allowed to read.
func (r *Registry) Open(ctx context.Context, viewer models.Viewer, conversationID string) (*models.Conversation, error) {
	conv, err := r.db.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, storeError("open conversation", err)
	}
	if !CanView(viewer, conv) {
		return nil, newError(KindForbidden, "open conversation", "you are not a participant of this conversation")
	}
	return conv, nil
}

// ListForUser builds the viewer's chat list, most recent first. Support
// staff see every support conversation; everyone else sees their own.
func (r *Registry) ListForUser(ctx context.Context, viewer models.Viewer) ([]models.ChatListEntry, error) {
	var (
		convs []*models.Conversation
		err   error
	)
	if viewer.IsSupportStaff() {
		convs, err = r.db.ListSupportConversations(ctx)
	} else {
		convs, err = r.db.ListConversationsByUser(ctx, viewer.ID)
	}
	if err != nil {
		return nil, storeError("list conversations", err)
	}

	entries := make([]models.ChatListEntry, 0, len(convs))
	for _, conv := range convs {
		entry, err := r.entry(ctx, viewer, conv)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastActivityAt.Equal(entries[j].LastActivityAt) {
			return entries[i].LastActivityAt.After(entries[j].LastActivityAt)
		}
		return entries[i].ConversationID < entries[j].ConversationID
	})
	return entries, nil
}

func (r *Registry) entry(ctx context.Context, viewer models.Viewer, conv *models.Conversation) (models.ChatListEntry, error) {
	latest, err := r.db.LatestActiveMessage(ctx, conv.ID)
	if err != nil {
		return models.ChatListEntry{}, storeError("list conversations", err)
	}
	preview := PlaceholderPreview
	if latest != nil {
		preview = latest.Content
	}

	state, err := r.unread.State(ctx, viewer.ID, conv)
	if err != nil {
		return models.ChatListEntry{}, err
	}

	other := conv.Other(viewer.ID)
	return models.ChatListEntry{
		ConversationID:       conv.ID,
		OtherParticipantID:   other,
		OtherParticipantName: r.dir.ResolveName(other),
		PreviewText:          preview,
		LastActivityAt:       conv.LastActivityAt,
		UnreadCount:          state.UnreadCount,
		Support:              conv.Support,
	}, nil
}
