package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

// ChatRepository handles chat transcripts and their messages. A message may
// carry a metadata row keyed by the provider's completion id; chat deletion
// cascades to messages but deliberately leaves metadata behind.
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// SaveChat persists a chat and its messages in one transaction. Write order
// is fixed by the foreign keys: chat row first (messages reference it), then
// metadata rows (messages reference them), then messages.
func (r *ChatRepository) SaveChat(ctx context.Context, chat *models.Chat, messages []*models.Message) error {
	if chat.SavedAt.IsZero() {
		chat.SavedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var personaUUID sql.NullString
	if chat.PersonaUUID != nil {
		personaUUID = sql.NullString{String: chat.PersonaUUID.String(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (uuid, name, persona_uuid, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (uuid) DO UPDATE SET
			name = excluded.name,
			persona_uuid = excluded.persona_uuid,
			saved_at = excluded.saved_at`,
		chat.UUID.String(), chat.Name, personaUUID, chat.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}

	for _, msg := range messages {
		if msg.Metadata == nil {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO message_metadata (openai_id, finish_reason, prompt_tokens, completion_tokens, total_tokens, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (openai_id) DO UPDATE SET
				finish_reason = excluded.finish_reason,
				prompt_tokens = excluded.prompt_tokens,
				completion_tokens = excluded.completion_tokens,
				total_tokens = excluded.total_tokens,
				timestamp = excluded.timestamp`,
			msg.Metadata.OpenAIID,
			msg.Metadata.FinishReason,
			msg.Metadata.PromptTokens,
			msg.Metadata.CompletionTokens,
			msg.Metadata.TotalTokens,
			msg.Metadata.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save message metadata: %w", err)
		}
	}

	for _, msg := range messages {
		if !msg.Role.Valid() {
			return fmt.Errorf("unknown role: %q", msg.Role)
		}

		var metadataID sql.NullString
		if msg.Metadata != nil {
			metadataID = sql.NullString{String: msg.Metadata.OpenAIID, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (uuid, text, role, timestamp, is_active, chat_uuid, metadata_openai_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (uuid) DO UPDATE SET
				text = excluded.text,
				role = excluded.role,
				timestamp = excluded.timestamp,
				is_active = excluded.is_active,
				chat_uuid = excluded.chat_uuid,
				metadata_openai_id = excluded.metadata_openai_id`,
			msg.UUID.String(),
			msg.Text,
			string(msg.Role),
			msg.Timestamp,
			msg.IsActive,
			chat.UUID.String(),
			metadataID,
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chat: %w", err)
	}
	return nil
}

// List returns all saved chats, newest first
func (r *ChatRepository) List(ctx context.Context) ([]*models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, name, persona_uuid, saved_at
		FROM chats
		ORDER BY saved_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*models.Chat
	for rows.Next() {
		chat := &models.Chat{}
		var chatUUID string
		var personaUUID sql.NullString

		if err := rows.Scan(&chatUUID, &chat.Name, &personaUUID, &chat.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		if chat.UUID, err = uuid.Parse(chatUUID); err != nil {
			return nil, fmt.Errorf("failed to parse chat uuid: %w", err)
		}
		if personaUUID.Valid {
			parsed, err := uuid.Parse(personaUUID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse persona uuid: %w", err)
			}
			chat.PersonaUUID = &parsed
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}
	return chats, nil
}

// GetMessages reconstructs the messages of a chat, joining each message with
// its metadata row when metadata_openai_id is set. Ordered by timestamp.
func (r *ChatRepository) GetMessages(ctx context.Context, chatUUID uuid.UUID) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.uuid, m.text, m.role, m.timestamp, m.is_active, m.chat_uuid,
			md.openai_id, md.finish_reason, md.prompt_tokens, md.completion_tokens, md.total_tokens, md.timestamp
		FROM messages m
		LEFT JOIN message_metadata md ON m.metadata_openai_id = md.openai_id
		WHERE m.chat_uuid = ?
		ORDER BY m.timestamp ASC`,
		chatUUID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var msgUUID, role, msgChatUUID string
		var metaID, finishReason sql.NullString
		var promptTokens, completionTokens, totalTokens sql.NullInt64
		var metaTimestamp sql.NullTime

		err := rows.Scan(
			&msgUUID,
			&msg.Text,
			&role,
			&msg.Timestamp,
			&msg.IsActive,
			&msgChatUUID,
			&metaID,
			&finishReason,
			&promptTokens,
			&completionTokens,
			&totalTokens,
			&metaTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if msg.UUID, err = uuid.Parse(msgUUID); err != nil {
			return nil, fmt.Errorf("failed to parse message uuid: %w", err)
		}
		if msg.ChatUUID, err = uuid.Parse(msgChatUUID); err != nil {
			return nil, fmt.Errorf("failed to parse chat uuid: %w", err)
		}
		if msg.Role, err = models.ParseRole(role); err != nil {
			return nil, fmt.Errorf("failed to parse message role: %w", err)
		}

		if metaID.Valid {
			msg.Metadata = &models.MessageMetadata{
				OpenAIID:         metaID.String,
				FinishReason:     finishReason.String,
				PromptTokens:     int(promptTokens.Int64),
				CompletionTokens: int(completionTokens.Int64),
				TotalTokens:      int(totalTokens.Int64),
				Timestamp:        metaTimestamp.Time,
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// DeleteByUUID removes a chat; its messages go with it through the cascading
// foreign key. Metadata rows are not cascaded and stay behind as orphans.
func (r *ChatRepository) DeleteByUUID(ctx context.Context, chatUUID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE uuid = ?`, chatUUID.String())
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("chat not found: %w", sql.ErrNoRows)
	}
	return nil
}

// DeleteAll removes every chat and, through the cascade, every message
func (r *ChatRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chats`); err != nil {
		return fmt.Errorf("failed to delete chats: %w", err)
	}
	return nil
}

// CountMessages returns the number of messages stored for a chat
func (r *ChatRepository) CountMessages(ctx context.Context, chatUUID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE chat_uuid = ?`, chatUUID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
