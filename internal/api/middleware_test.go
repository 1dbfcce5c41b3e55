package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudra1in/facultyapp-sub000/internal/auth"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

// setupAuthTestRouter creates a test router with the given auth middleware
func setupAuthTestRouter(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth.InitJWTKey([]byte("test-secret-key"))

	router := gin.New()
	router.Use(middleware)
	router.GET("/test", func(c *gin.Context) {
		viewer, ok := currentViewer(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewer)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	router := setupAuthTestRouter(AuthMiddleware())
	viewer := models.Viewer{ID: "faculty-milan", Role: models.RoleFaculty}
	token := tokenFor(t, viewer)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"no token", "", http.StatusUnauthorized},
		{"invalid token format", "Bearer invalid.token.string", http.StatusUnauthorized},
		{"missing Bearer prefix", token, http.StatusUnauthorized},
		{"query token is not accepted", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test?token="+token, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
				return
			}

			var got models.Viewer
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, viewer, got)
		})
	}
}

func TestTokenAuthMiddleware(t *testing.T) {
	router := setupAuthTestRouter(TokenAuthMiddleware())
	viewer := models.Viewer{ID: "student-uid-987", Role: models.RoleStudent}
	token := tokenFor(t, viewer)

	tests := []struct {
		name       string
		query      string
		header     string
		wantStatus int
	}{
		{"token in query", "?token=" + token, "", http.StatusOK},
		{"token in header", "", "Bearer " + token, http.StatusOK},
		{"invalid query token", "?token=invalid", "Bearer " + token, http.StatusUnauthorized},
		{"no token", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var got models.Viewer
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, viewer, got)
			}
		})
	}
}

func TestCurrentViewerWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		if _, ok := currentViewer(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
