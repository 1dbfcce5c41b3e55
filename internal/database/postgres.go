package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

const conversationColumns = `id, participant_a, participant_b, support, archived, created_at, last_activity_at`

const messageColumns = `id, conversation_id, sender_id, content, created_at, edited_at, state`

type PostgresDB struct {
	*sql.DB
	clock Clock
}

var _ DBInterface = (*PostgresDB)(nil)

func NewPostgresDB(connStr string, opts ...Option) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresDB{DB: db, clock: applyOptions(opts).clock}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(
		&conv.ID, &conv.Participants[0], &conv.Participants[1],
		&conv.Support, &conv.Archived, &conv.CreatedAt, &conv.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}
	conv.CreatedAt = conv.CreatedAt.UTC()
	conv.LastActivityAt = conv.LastActivityAt.UTC()
	return &conv, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var msg models.Message
	var editedAt sql.NullTime
	var state string

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.CreatedAt, &editedAt, &state)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.State = models.MessageState(state)
	if editedAt.Valid {
		t := editedAt.Time.UTC()
		msg.EditedAt = &t
	}
	return &msg, nil
}

func (db *PostgresDB) CreateConversationIfAbsent(ctx context.Context, id string, participants [2]string, support bool) (*models.Conversation, bool, error) {
	now := db.clock()
	result, err := db.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, support, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO NOTHING`,
		id, participants[0], participants[1], support, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	conv, err := db.GetConversation(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return conv, rowsAffected == 1, nil
}

func (db *PostgresDB) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	conv, err := scanConversation(db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	return conv, err
}

func (db *PostgresDB) ListConversationsByUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return db.queryConversations(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY id`, userID)
}

func (db *PostgresDB) ListSupportConversations(ctx context.Context) ([]*models.Conversation, error) {
	return db.queryConversations(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE support
		ORDER BY id`)
}

func (db *PostgresDB) queryConversations(ctx context.Context, query string, args ...any) ([]*models.Conversation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (db *PostgresDB) AppendMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := lockConversation(ctx, tx, conversationID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      db.clock(),
		State:          models.MessageActive,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, content, created_at, state)
		VALUES ($1, $2, $3, $4, 'active')
		RETURNING id`,
		msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_activity_at = $2 WHERE id = $1`,
		conversationID, msg.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("advancing last activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *PostgresDB) GetMessageByID(ctx context.Context, id int64) (*models.Message, error) {
	msg, err := scanMessage(db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return msg, err
}

func (db *PostgresDB) UpdateMessageContent(ctx context.Context, id int64, content string) (*models.Message, error) {
	msg, err := scanMessage(db.QueryRowContext(ctx, `
		UPDATE messages SET content = $2, edited_at = $3
		WHERE id = $1 AND state = 'active'
		RETURNING `+messageColumns,
		id, content, db.clock(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return msg, err
}

func (db *PostgresDB) SoftDeleteMessage(ctx context.Context, id int64) (*models.Conversation, error) {
	return db.removeMessage(ctx, id, `
		UPDATE messages SET state = 'deleted', content = '', edited_at = NULL
		WHERE id = $1 AND state = 'active'`)
}

func (db *PostgresDB) PurgeMessage(ctx context.Context, id int64) (*models.Conversation, error) {
	return db.removeMessage(ctx, id, `DELETE FROM messages WHERE id = $1`)
}

// removeMessage runs stmt against message id and recomputes the owning
// conversation's last activity in the same transaction.
func (db *PostgresDB) removeMessage(ctx context.Context, id int64, stmt string) (*models.Conversation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var conversationID string
	err = tx.QueryRowContext(ctx, `SELECT conversation_id FROM messages WHERE id = $1`, id).Scan(&conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := lockConversation(ctx, tx, conversationID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
		return nil, fmt.Errorf("removing message: %w", err)
	}

	conv, err := scanConversation(tx.QueryRowContext(ctx, `
		UPDATE conversations c
		SET last_activity_at = COALESCE(
			(SELECT MAX(m.created_at) FROM messages m
			 WHERE m.conversation_id = c.id AND m.state = 'active'),
			c.created_at)
		WHERE c.id = $1
		RETURNING `+conversationColumns,
		conversationID,
	))
	if err != nil {
		return nil, fmt.Errorf("recomputing last activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return conv, nil
}

func lockConversation(ctx context.Context, tx *sql.Tx, conversationID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, conversationID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConversationNotFound
	}
	return err
}

func (db *PostgresDB) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	if _, err := db.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1 AND state = 'active'
		ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *PostgresDB) LatestActiveMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	msg, err := scanMessage(db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1 AND state = 'active'
		ORDER BY id DESC
		LIMIT 1`, conversationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (db *PostgresDB) CountUnread(ctx context.Context, conversationID, userID string, after time.Time) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1 AND state = 'active' AND sender_id <> $2 AND created_at > $3`,
		conversationID, userID, after,
	).Scan(&count)
	return count, err
}

func (db *PostgresDB) GetReadState(ctx context.Context, userID, conversationID string) (*models.NotificationState, error) {
	state := &models.NotificationState{UserID: userID, ConversationID: conversationID}
	err := db.QueryRowContext(ctx,
		`SELECT last_read_at FROM read_states WHERE user_id = $1 AND conversation_id = $2`,
		userID, conversationID,
	).Scan(&state.LastReadAt)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	state.LastReadAt = state.LastReadAt.UTC()
	return state, nil
}

func (db *PostgresDB) AdvanceReadState(ctx context.Context, userID, conversationID string) (*models.NotificationState, error) {
	state := &models.NotificationState{UserID: userID, ConversationID: conversationID}
	err := db.QueryRowContext(ctx, `
		INSERT INTO read_states (user_id, conversation_id, last_read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, conversation_id)
		DO UPDATE SET last_read_at = GREATEST(read_states.last_read_at, EXCLUDED.last_read_at)
		RETURNING last_read_at`,
		userID, conversationID, db.clock(),
	).Scan(&state.LastReadAt)
	if err != nil {
		return nil, err
	}
	state.LastReadAt = state.LastReadAt.UTC()
	return state, nil
}

func (db *PostgresDB) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = db.clock()
	return db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, category, type, message, context, is_read, muted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		n.UserID, n.Category, n.Type, n.Message, n.Context, n.Read, n.Muted, n.CreatedAt,
	).Scan(&n.ID)
}

const notificationColumns = `id, user_id, category, type, message, context, is_read, muted, created_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Category, &n.Type, &n.Message, &n.Context, &n.Read, &n.Muted, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return &n, nil
}

func (db *PostgresDB) ListNotifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (db *PostgresDB) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	n, err := scanNotification(db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	return n, err
}

func (db *PostgresDB) MarkNotificationRead(ctx context.Context, id int64) error {
	return db.execExpectingRow(ctx, ErrNotificationNotFound, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
}

func (db *PostgresDB) DeleteNotification(ctx context.Context, id int64) error {
	return db.execExpectingRow(ctx, ErrNotificationNotFound, `DELETE FROM notifications WHERE id = $1`, id)
}

func (db *PostgresDB) execExpectingRow(ctx context.Context, notFound error, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func (db *PostgresDB) Close() error {
	return db.DB.Close()
}
