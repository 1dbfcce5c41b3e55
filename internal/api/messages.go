package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rudra1in/facultyapp-sub000/internal/chat"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

// MessageHandler handles message-related routes
type MessageHandler struct {
	store *chat.MessageStore
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(store *chat.MessageStore) *MessageHandler {
	return &MessageHandler{store: store}
}

// SendMessage appends a message to a conversation
func (h *MessageHandler) SendMessage(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	var req models.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_JSON", "conversationId and content are required")
		return
	}

	msg, err := h.store.Append(c.Request.Context(), viewer, req.ConversationID, req.Content)
	if err != nil {
		writeChatError(c, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, h.store.Response(msg))
}

// GetMessages returns the active messages of a conversation in order
func (h *MessageHandler) GetMessages(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	messages, err := h.store.List(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeChatError(c, "list messages", err)
		return
	}

	resp := make([]models.MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, h.store.Response(m))
	}
	c.JSON(http.StatusOK, resp)
}

// EditMessage replaces the content of the caller's message
func (h *MessageHandler) EditMessage(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req models.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.store.Edit(c.Request.Context(), viewer, id, req.Content)
	if err != nil {
		writeChatError(c, "edit message", err)
		return
	}
	c.JSON(http.StatusOK, h.store.Response(msg))
}

// DeleteMessage deletes the caller's message; ?hard=true erases it
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var err error
	if c.Query("hard") == "true" {
		err = h.store.Purge(c.Request.Context(), viewer, id)
	} else {
		err = h.store.Delete(c.Request.Context(), viewer, id)
	}
	if err != nil {
		writeChatError(c, "delete message", err)
		return
	}
	c.Status(http.StatusNoContent)
}
