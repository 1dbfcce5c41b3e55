package database

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id               TEXT PRIMARY KEY,
	participant_a    TEXT NOT NULL,
	participant_b    TEXT NOT NULL,
	support          BOOLEAN NOT NULL DEFAULT FALSE,
	archived         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL,
	last_activity_at TIMESTAMPTZ NOT NULL,
	CHECK (participant_a < participant_b)
);
CREATE INDEX IF NOT EXISTS conversations_participant_a_idx ON conversations (participant_a);
CREATE INDEX IF NOT EXISTS conversations_participant_b_idx ON conversations (participant_b);
CREATE INDEX IF NOT EXISTS conversations_support_idx ON conversations (support) WHERE support;

CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL REFERENCES conversations (id),
	id              BIGSERIAL NOT NULL UNIQUE,
	sender_id       TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	edited_at       TIMESTAMPTZ,
	state           TEXT NOT NULL DEFAULT 'active',
	PRIMARY KEY (conversation_id, id),
	CHECK (state IN ('active', 'deleted')),
	CHECK (edited_at IS NULL OR state = 'active')
);

CREATE TABLE IF NOT EXISTS read_states (
	user_id         TEXT NOT NULL,
	conversation_id TEXT NOT NULL REFERENCES conversations (id),
	last_read_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, conversation_id)
);

CREATE TABLE IF NOT EXISTS notifications (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	context    TEXT NOT NULL DEFAULT '',
	is_read    BOOLEAN NOT NULL DEFAULT FALSE,
	muted      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS directory_entries (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT ''
);
`

// Migrate creates the tables used by PostgresDB when they do not exist
func (db *PostgresDB) Migrate(ctx context.Context) error {
	_, err := db.DB.ExecContext(ctx, schema)
	return err
}
