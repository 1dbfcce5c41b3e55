package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudra1in/facultyapp-sub000/internal/chat"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

func chatList(t *testing.T, ts *testServer, viewer models.Viewer) []models.ChatListEntry {
	t.Helper()
	w := ts.do(t, viewer, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var entries []models.ChatListEntry
	decode(t, w, &entries)
	return entries
}

func TestStartConversation(t *testing.T) {
	ts := setupTestServer(t)

	var first, second string
	w := ts.do(t, milan, http.MethodPost, "/api/conversations/faculty-anya", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &first)

	w = ts.do(t, anya, http.MethodPost, "/api/conversations/faculty-milan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &second)

	assert.Equal(t, milanAnya, first)
	assert.Equal(t, first, second)
	assert.JSONEq(t, `"`+milanAnya+`"`, w.Body.String())

	// the conversation exists and is empty
	assert.Empty(t, listMessages(t, ts, anya, milanAnya))
	entries := chatList(t, ts, milan)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Support)

	tests := []struct {
		name  string
		other string
	}{
		{"self", "faculty-milan"},
		{"separator in id", "a--b"},
		{"whitespace in id", "faculty%20x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, milan, http.MethodPost, "/api/conversations/"+tt.other, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_PARTICIPANTS", errorCode(t, w))
		})
	}
}

func TestListConversations(t *testing.T) {
	ts := setupTestServer(t)

	assert.Empty(t, chatList(t, ts, milan))
	w := ts.do(t, milan, http.MethodGet, "/api/conversations", nil)
	assert.JSONEq(t, "[]", w.Body.String())

	w = ts.do(t, milan, http.MethodPost, "/api/conversations/faculty-jane", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ts.send(t, anya, milanAnya, "Are you free?")
	ts.send(t, anya, milanAnya, "Ping")

	entries := chatList(t, ts, milan)
	require.Len(t, entries, 2)

	assert.Equal(t, milanAnya, entries[0].ConversationID)
	assert.Equal(t, "faculty-anya", entries[0].OtherParticipantID)
	assert.Equal(t, "Prof. Anya Das", entries[0].OtherParticipantName)
	assert.Equal(t, "Ping", entries[0].PreviewText)
	assert.Equal(t, 2, entries[0].UnreadCount)

	assert.Equal(t, "faculty-jane--faculty-milan", entries[1].ConversationID)
	assert.Equal(t, chat.PlaceholderPreview, entries[1].PreviewText)
	assert.Zero(t, entries[1].UnreadCount)
}

func TestSupportConversationsForAdmin(t *testing.T) {
	ts := setupTestServer(t)

	ts.send(t, student, "faculty-milan--student-uid-987", "Question about grades")
	ts.send(t, anya, milanAnya, "Faculty only")

	entries := chatList(t, ts, admin)
	require.Len(t, entries, 1)
	assert.Equal(t, "faculty-milan--student-uid-987", entries[0].ConversationID)
	assert.True(t, entries[0].Support)

	w := ts.do(t, admin, http.MethodGet, "/api/messages/faculty-milan--student-uid-987", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, admin, http.MethodGet, "/api/messages/"+milanAnya, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnreadAndMarkRead(t *testing.T) {
	ts := setupTestServer(t)
	ts.send(t, anya, milanAnya, "one")
	ts.send(t, anya, milanAnya, "two")

	unread := func(viewer models.Viewer) int {
		w := ts.do(t, viewer, http.MethodGet, "/api/conversations/"+milanAnya+"/unread", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var state models.NotificationState
		decode(t, w, &state)
		return state.UnreadCount
	}

	assert.Equal(t, 2, unread(milan))
	assert.Equal(t, 0, unread(anya))

	for i := 0; i < 2; i++ {
		w := ts.do(t, milan, http.MethodPost, "/api/conversations/"+milanAnya+"/read", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var state models.NotificationState
		decode(t, w, &state)
		assert.Zero(t, state.UnreadCount)
		assert.Equal(t, milan.ID, state.UserID)
	}
	assert.Equal(t, 0, unread(milan))

	ts.send(t, anya, milanAnya, "three")
	assert.Equal(t, 1, unread(milan))

	w := ts.do(t, jane, http.MethodPost, "/api/conversations/"+milanAnya+"/read", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, milan, http.MethodGet, "/api/conversations/faculty-jane--faculty-milan/unread", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
