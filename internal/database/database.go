package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DB wraps the embedded SQLite handle shared by all repositories
type DB struct {
	*sql.DB
}

// New opens the local store at path and runs schema migration. Foreign keys
// are enabled on the connection; SQLite serializes writers, so a single
// connection avoids SQLITE_BUSY under concurrent handlers.
func New(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	wrapped := &DB{DB: db}
	if err := wrapped.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return wrapped, nil
}

// migrate creates the schema. All statements are idempotent so migration
// runs on every startup.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		uuid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		alias TEXT NOT NULL DEFAULT '',
		system_message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		last_used TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		uuid TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		persona_uuid TEXT,
		saved_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS message_metadata (
		openai_id TEXT PRIMARY KEY,
		finish_reason TEXT NOT NULL DEFAULT '',
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		uuid TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'bot', 'system')),
		timestamp TIMESTAMP NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		chat_uuid TEXT NOT NULL REFERENCES chats (uuid) ON DELETE CASCADE,
		metadata_openai_id TEXT REFERENCES message_metadata (openai_id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_uuid ON messages (chat_uuid);

	CREATE TABLE IF NOT EXISTS bots (
		uuid TEXT PRIMARY KEY,
		parent_uuid TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		alias TEXT NOT NULL DEFAULT '',
		system_message TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		users_count INTEGER NOT NULL DEFAULT 0,
		user_up_votes INTEGER NOT NULL DEFAULT 0,
		user_down_votes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_bots_created_at ON bots (created_at DESC);

	CREATE VIRTUAL TABLE IF NOT EXISTS bots_fts USING fts4 (
		uuid, name, alias, system_message, description, tags, created_by
	);

	CREATE TABLE IF NOT EXISTS image_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		prompt TEXT NOT NULL,
		n INTEGER NOT NULL,
		size TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS generated_images (
		uuid TEXT PRIMARY KEY,
		request_id INTEGER NOT NULL REFERENCES image_requests (id) ON DELETE CASCADE,
		data BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
