package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers groups the route handlers mounted under /api
type Handlers struct {
	Messages      *MessageHandler
	Conversations *ConversationHandler
	Directory     *DirectoryHandler
	Notifications *NotificationHandler
	WebSocket     gin.HandlerFunc
}

// RegisterRoutes mounts the health check and every /api route
func RegisterRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authorized := router.Group("/api")
	authorized.Use(AuthMiddleware())
	{
		authorized.POST("/messages", h.Messages.SendMessage)
		authorized.GET("/messages/:id", h.Messages.GetMessages)
		authorized.PUT("/messages/:id", h.Messages.EditMessage)
		authorized.DELETE("/messages/:id", h.Messages.DeleteMessage)

		authorized.GET("/conversations", h.Conversations.ListConversations)
		authorized.POST("/conversations/:id", h.Conversations.StartConversation)
		authorized.GET("/conversations/:id/unread", h.Conversations.GetUnread)
		authorized.POST("/conversations/:id/read", h.Conversations.MarkRead)

		authorized.GET("/directory/search", h.Directory.Search)
		authorized.GET("/directory/:id", h.Directory.Resolve)

		authorized.GET("/notifications", h.Notifications.List)
		authorized.PATCH("/notifications/:id/read", h.Notifications.MarkRead)
		authorized.DELETE("/notifications/:id", h.Notifications.Delete)
	}

	if h.WebSocket != nil {
		ws := router.Group("/api")
		ws.Use(TokenAuthMiddleware())
		ws.GET("/ws", h.WebSocket)
	}
}
