package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rudra1in/facultyapp-sub000/internal/auth"
	"github.com/rudra1in/facultyapp-sub000/internal/chat"
	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/directory"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
	"github.com/rudra1in/facultyapp-sub000/internal/notifications"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
	"github.com/rudra1in/facultyapp-sub000/internal/websocket"
)

var (
	milan   = models.Viewer{ID: "faculty-milan", Role: models.RoleFaculty}
	anya    = models.Viewer{ID: "faculty-anya", Role: models.RoleFaculty}
	jane    = models.Viewer{ID: "faculty-jane", Role: models.RoleFaculty}
	student = models.Viewer{ID: "student-uid-987", Role: models.RoleStudent}
	admin   = models.Viewer{ID: "admin-uid-123", Role: models.RoleAdmin}
)

var roster = []models.DirectoryEntry{
	{ID: "faculty-milan", Name: "Dr. Milan Sharma", Role: models.RoleFaculty},
	{ID: "faculty-anya", Name: "Prof. Anya Das", Role: models.RoleFaculty},
	{ID: "faculty-jane", Name: "Dr. Jane Smith", Role: models.RoleFaculty},
	{ID: "student-uid-987", Name: "Rohan Mehta", Role: models.RoleStudent},
	{ID: "admin-uid-123", Name: "Portal Admin", Role: models.RoleAdmin},
}

type testServer struct {
	db      *database.MemoryDB
	bus     *pubsub.Bus
	manager *websocket.Manager
	router  *gin.Engine
}

func steppingClock() database.Clock {
	var mu sync.Mutex
	now := time.Date(2026, 4, 6, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// setupTestServer wires the full stack on the memory store behind the real
// routes and auth middleware
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.InitJWTKey([]byte("test-secret-key"))

	ts := &testServer{
		db:  database.NewMemoryDB(database.WithClock(steppingClock())),
		bus: pubsub.NewBus(),
	}
	dir := directory.NewStatic(roster...)
	feed := notifications.NewFeed(ts.db, ts.bus)
	unread := chat.NewCoordinator(ts.db, dir, ts.bus, feed)
	registry := chat.NewRegistry(ts.db, dir, unread)
	store := chat.NewMessageStore(ts.db, registry, unread, dir, ts.bus)

	ts.manager = websocket.NewManager(ts.bus, registry)
	go ts.manager.Run()

	ts.router = gin.New()
	RegisterRoutes(ts.router, Handlers{
		Messages:      NewMessageHandler(store),
		Conversations: NewConversationHandler(registry, unread),
		Directory:     NewDirectoryHandler(dir),
		Notifications: NewNotificationHandler(feed),
		WebSocket:     ts.manager.HandleWebSocket,
	})

	t.Cleanup(func() {
		ts.manager.Stop()
		ts.bus.Close()
	})
	return ts
}

func tokenFor(t *testing.T, viewer models.Viewer) string {
	t.Helper()
	token, _, err := auth.GenerateToken(viewer)
	require.NoError(t, err)
	return token
}

// do performs an authenticated request and returns the recorder
func (ts *testServer) do(t *testing.T, viewer models.Viewer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, viewer))

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) send(t *testing.T, from models.Viewer, conversationID, content string) models.MessageResponse {
	t.Helper()
	w := ts.do(t, from, http.MethodPost, "/api/messages", map[string]string{
		"conversationId": conversationID,
		"content":        content,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.MessageResponse
	decode(t, w, &resp)
	return resp
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, w, &body)
	return body.Error.Code
}
