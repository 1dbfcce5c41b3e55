package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rudra1in/facultyapp-sub000/internal/directory"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

// DirectoryHandler serves the new-conversation search panel
type DirectoryHandler struct {
	dir *directory.Directory
}

func NewDirectoryHandler(dir *directory.Directory) *DirectoryHandler {
	return &DirectoryHandler{dir: dir}
}

// Search matches display names against ?q=, optionally filtered by ?role=
func (h *DirectoryHandler) Search(c *gin.Context) {
	viewer, ok := currentViewer(c)
	if !ok {
		return
	}

	role := models.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		writeError(c, http.StatusBadRequest, "INVALID_ROLE", "Unknown role")
		return
	}

	matches := h.dir.Search(c.Query("q"), role)
	result := make([]models.DirectoryMatch, 0, len(matches))
	for _, m := range matches {
		if m.ID != viewer.ID {
			result = append(result, m)
		}
	}
	c.JSON(http.StatusOK, result)
}

// Resolve returns the display name of :id
func (h *DirectoryHandler) Resolve(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"id": id, "name": h.dir.ResolveName(id)})
}
