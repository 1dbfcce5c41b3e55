package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rudra1in/facultyapp-sub000/internal/auth"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

// Context keys set by the auth middlewares
const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// AuthMiddleware validates the bearer token and sets the caller in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Authorization header required")
			return
		}
		authenticate(c, strings.TrimPrefix(authHeader, "Bearer "))
	}
}

// TokenAuthMiddleware also accepts the token as a ?token= query parameter,
// which browsers need for websocket upgrades
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.Query("token"); token != "" {
			authenticate(c, token)
			return
		}
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Authorization required")
			return
		}
		authenticate(c, strings.TrimPrefix(authHeader, "Bearer "))
	}
}

func authenticate(c *gin.Context, token string) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		abortUnauthorized(c, "Invalid token")
		return
	}
	viewer, err := claims.Viewer()
	if err != nil {
		abortUnauthorized(c, "Invalid token claims")
		return
	}

	c.Set(ctxUserID, viewer.ID)
	c.Set(ctxRole, string(viewer.Role))
	c.Next()
}

func abortUnauthorized(c *gin.Context, message string) {
	writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
	c.Abort()
}

// currentViewer returns the caller set by the auth middleware
func currentViewer(c *gin.Context) (models.Viewer, bool) {
	userID := c.GetString(ctxUserID)
	if userID == "" {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return models.Viewer{}, false
	}
	return models.Viewer{ID: userID, Role: models.Role(c.GetString(ctxRole))}, true
}
