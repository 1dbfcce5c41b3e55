package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

func setupMemoryDB(t *testing.T) (*MemoryDB, *models.Conversation) {
	t.Helper()
	db := NewMemoryDB(WithClock(newStepClock().Now))
	conv, created, err := db.CreateConversationIfAbsent(context.Background(), "u1--u2", [2]string{"u1", "u2"}, false)
	require.NoError(t, err)
	require.True(t, created)
	return db, conv
}

func TestMemoryCreateConversationIfAbsent(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*models.Conversation, 16)
	created := make([]bool, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, c, err := db.CreateConversationIfAbsent(ctx, "u1--u2", [2]string{"u1", "u2"}, false)
			assert.NoError(t, err)
			results[i], created[i] = conv, c
		}(i)
	}
	wg.Wait()

	inserts := 0
	for i, conv := range results {
		assert.Equal(t, results[0].CreatedAt, conv.CreatedAt)
		if created[i] {
			inserts++
		}
	}
	assert.Equal(t, 1, inserts)

	convs, err := db.ListConversationsByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestMemoryAppendAndList(t *testing.T) {
	db, conv := setupMemoryDB(t)
	ctx := context.Background()

	first, err := db.AppendMessage(ctx, conv.ID, "u1", "hello")
	require.NoError(t, err)
	second, err := db.AppendMessage(ctx, conv.ID, "u2", "hi there")
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	list, err := db.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	got, err := db.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, second.CreatedAt, got.LastActivityAt)

	_, err = db.AppendMessage(ctx, "u1--u9", "u1", "nobody home")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryReturnedMessagesAreCopies(t *testing.T) {
	db, conv := setupMemoryDB(t)
	ctx := context.Background()

	msg, err := db.AppendMessage(ctx, conv.ID, "u1", "hello")
	require.NoError(t, err)
	msg.Content = "tampered"

	stored, err := db.GetMessageByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Content)
}

func TestMemoryUpdateMessageContent(t *testing.T) {
	db, conv := setupMemoryDB(t)
	ctx := context.Background()

	msg, err := db.AppendMessage(ctx, conv.ID, "u1", "hello")
	require.NoError(t, err)

	edited, err := db.UpdateMessageContent(ctx, msg.ID, "hello!")
	require.NoError(t, err)
	assert.Equal(t, "hello!", edited.Content)
	require.NotNil(t, edited.EditedAt)
	assert.Equal(t, msg.CreatedAt, edited.CreatedAt)

	_, err = db.SoftDeleteMessage(ctx, msg.ID)
	require.NoError(t, err)

	_, err = db.UpdateMessageContent(ctx, msg.ID, "again")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = db.UpdateMessageContent(ctx, 9999, "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMemorySoftDeleteRecomputesLastActivity(t *testing.T) {
	db, conv := setupMemoryDB(t)
	ctx := context.Background()

	first, _ := db.AppendMessage(ctx, conv.ID, "u1", "one")
	second, _ := db.AppendMessage(ctx, conv.ID, "u1", "two")
	_, _ = db.UpdateMessageContent(ctx, second.ID, "two!")

	updated, err := db.SoftDeleteMessage(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, updated.LastActivityAt)

	deleted, err := db.GetMessageByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageDeleted, deleted.State)
	assert.Nil(t, deleted.EditedAt)

	// Deleting again changes nothing.
	again, err := db.SoftDeleteMessage(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, again)

	updated, err = db.SoftDeleteMessage(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.CreatedAt, updated.LastActivityAt)

	latest, err := db.LatestActiveMessage(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestMemoryPurgeMessage(t *testing.T) {
	db, conv := setupMemoryDB(t)
	ctx := context.Background()

	first, _ := db.AppendMessage(ctx, conv.ID, "u1", "one")
	second, _ := db.AppendMessage(ctx, conv.ID, "u2", "two")

	updated, err := db.PurgeMessage(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, updated.LastActivityAt)

	_, err = db.GetMessageByID(ctx, second.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	_, err = db.PurgeMessage(ctx, second.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	third, err := db.AppendMessage(ctx, conv.ID, "u2", "three")
	require.NoError(t, err)
	assert.Greater(t, third.ID, second.ID, "purged ids are never reused")
}

func TestMemoryCountUnreadAndReadState(t *testing.T) {
	db, conv := setupMemoryDB(t)
	ctx := context.Background()

	state, err := db.GetReadState(ctx, "u2", conv.ID)
	require.NoError(t, err)
	assert.True(t, state.LastReadAt.IsZero())

	for i := 0; i < 3; i++ {
		_, err := db.AppendMessage(ctx, conv.ID, "u1", "ping")
		require.NoError(t, err)
	}
	_, _ = db.AppendMessage(ctx, conv.ID, "u2", "own message")

	count, err := db.CountUnread(ctx, conv.ID, "u2", state.LastReadAt)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	read, err := db.AdvanceReadState(ctx, "u2", conv.ID)
	require.NoError(t, err)
	count, err = db.CountUnread(ctx, conv.ID, "u2", read.LastReadAt)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryAdvanceReadStateIsMonotonic(t *testing.T) {
	clock := newStepClock()
	db := NewMemoryDB(WithClock(clock.Now))
	ctx := context.Background()

	later, err := db.AdvanceReadState(ctx, "u1", "u1--u2")
	require.NoError(t, err)

	// Rewind the clock: an earlier effective time must not move the marker back.
	clock.now = later.LastReadAt.Add(-time.Hour)
	again, err := db.AdvanceReadState(ctx, "u1", "u1--u2")
	require.NoError(t, err)
	assert.Equal(t, later.LastReadAt, again.LastReadAt)
}

func TestMemoryNotifications(t *testing.T) {
	db := NewMemoryDB(WithClock(newStepClock().Now))
	ctx := context.Background()

	older := &models.Notification{UserID: "u2", Type: "new_message", Message: "first"}
	newer := &models.Notification{UserID: "u2", Type: "new_message", Message: "second"}
	other := &models.Notification{UserID: "u3", Type: "new_message", Message: "not yours"}
	require.NoError(t, db.CreateNotification(ctx, older))
	require.NoError(t, db.CreateNotification(ctx, newer))
	require.NoError(t, db.CreateNotification(ctx, other))

	list, err := db.ListNotifications(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.Equal(t, "first", list[1].Message)

	require.NoError(t, db.MarkNotificationRead(ctx, older.ID))
	got, err := db.GetNotification(ctx, older.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	require.NoError(t, db.DeleteNotification(ctx, older.ID))
	assert.ErrorIs(t, db.DeleteNotification(ctx, older.ID), ErrNotificationNotFound)
	assert.ErrorIs(t, db.MarkNotificationRead(ctx, older.ID), ErrNotificationNotFound)
}
