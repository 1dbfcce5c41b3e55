package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rudra1in/facultyapp-sub000/internal/notifications"
)

// NotificationHandler serves the caller's notification feed
type NotificationHandler struct {
	feed *notifications.Feed
}

func NewNotificationHandler(feed *notifications.Feed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

func (h *NotificationHandler) List(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	list, err := h.feed.List(c.Request.Context(), viewer)
	if err != nil {
		writeChatError(c, "list notifications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	n, err := h.feed.MarkRead(c.Request.Context(), viewer, id)
	if err != nil {
		writeChatError(c, "mark notification read", err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.feed.Delete(c.Request.Context(), viewer, id); err != nil {
		writeChatError(c, "delete notification", err)
		return
	}
	c.Status(http.StatusNoContent)
}
