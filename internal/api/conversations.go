package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rudra1in/facultyapp-sub000/internal/chat"
)

// ConversationHandler serves the chat list and read markers
type ConversationHandler struct {
	registry *chat.Registry
	unread   *chat.Coordinator
}

func NewConversationHandler(registry *chat.Registry, unread *chat.Coordinator) *ConversationHandler {
	return &ConversationHandler{registry: registry, unread: unread}
}

// StartConversation ensures the conversation between the caller and :id and
// returns its id as a bare JSON string
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	conv, err := h.registry.EnsureConversation(c.Request.Context(), viewer.ID, c.Param("id"))
	if err != nil {
		writeChatError(c, "start conversation", err)
		return
	}
	c.JSON(http.StatusOK, conv.ID)
}

// ListConversations returns the caller's chat list
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	entries, err := h.registry.ListForUser(c.Request.Context(), viewer)
	if err != nil {
		writeChatError(c, "list conversations", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetUnread returns the caller's unread count of a conversation
func (h *ConversationHandler) GetUnread(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	state, err := h.unread.UnreadCount(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeChatError(c, "unread count", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// MarkRead advances the caller's read marker of a conversation
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	state, err := h.unread.MarkRead(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeChatError(c, "mark read", err)
		return
	}
	c.JSON(http.StatusOK, state)
}
