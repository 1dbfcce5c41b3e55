package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rudra1in/facultyapp-sub000/internal/chat"
	"github.com/rudra1in/facultyapp-sub000/internal/logger"
)

var log = logger.New("api")

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// writeChatError maps a core failure to its HTTP status. Anything that is not
// a kind-tagged failure is logged and reported as an internal error.
func writeChatError(c *gin.Context, op string, err error) {
	var status int
	var code string
	switch chat.KindOf(err) {
	case chat.KindInvalidParticipants:
		status, code = http.StatusBadRequest, "INVALID_PARTICIPANTS"
	case chat.KindEmptyContent:
		status, code = http.StatusBadRequest, "EMPTY_CONTENT"
	case chat.KindNotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case chat.KindForbidden:
		status, code = http.StatusForbidden, "FORBIDDEN"
	default:
		log.Error("%s failed: %v", op, err)
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	message := err.Error()
	var e *chat.Error
	if errors.As(err, &e) {
		message = e.Msg
	}
	writeError(c, status, code, message)
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}
