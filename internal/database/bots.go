package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

// BotRepository handles the community bot table and its FTS shadow table.
// The two are written together inside a transaction: primary row first,
// shadow row second (add-if-absent, else update-in-place), so a bot and its
// search entry can never diverge on uuid.
type BotRepository struct {
	db *DB
}

// NewBotRepository creates a new bot repository
func NewBotRepository(db *DB) *BotRepository {
	return &BotRepository{db: db}
}

const botColumns = `uuid, parent_uuid, name, alias, system_message, description, tags,
		users_count, user_up_votes, user_down_votes, created_at, updated_at, created_by`

// AddBot inserts or replaces the primary record and keeps the FTS shadow row
// in lock-step. Calling it twice with the same uuid leaves exactly one row in
// each table, with the shadow reflecting the latest call.
func (r *BotRepository) AddBot(ctx context.Context, bot *models.Bot) error {
	tagsJSON, err := json.Marshal(bot.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	upsert := `
		INSERT INTO bots (` + botColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uuid) DO UPDATE SET
			parent_uuid = excluded.parent_uuid,
			name = excluded.name,
			alias = excluded.alias,
			system_message = excluded.system_message,
			description = excluded.description,
			tags = excluded.tags,
			users_count = excluded.users_count,
			user_up_votes = excluded.user_up_votes,
			user_down_votes = excluded.user_down_votes,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			created_by = excluded.created_by
	`
	_, err = tx.ExecContext(ctx, upsert,
		bot.UUID.String(),
		bot.ParentUUID.String(),
		bot.Name,
		bot.Alias,
		bot.SystemMessage,
		bot.Description,
		string(tagsJSON),
		bot.UsersCount,
		bot.UserUpVotes,
		bot.UserDownVotes,
		bot.CreatedAt,
		bot.UpdatedAt,
		bot.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bot: %w", err)
	}

	// Shadow row: add if absent, otherwise update in place. A primary row
	// without a shadow (from an older database) is healed here.
	var shadowCount int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bots_fts WHERE uuid = ?`, bot.UUID.String()).Scan(&shadowCount)
	if err != nil {
		return fmt.Errorf("failed to check fts shadow row: %w", err)
	}

	name, alias, system, desc, tags, createdBy := bot.SearchFields()
	if shadowCount == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bots_fts (uuid, name, alias, system_message, description, tags, created_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			bot.UUID.String(), name, alias, system, desc, tags, createdBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fts shadow row: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE bots_fts
			SET name = ?, alias = ?, system_message = ?, description = ?, tags = ?, created_by = ?
			WHERE uuid = ?`,
			name, alias, system, desc, tags, createdBy, bot.UUID.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to update fts shadow row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bot upsert: %w", err)
	}
	return nil
}

// Search runs a full-text query over the shadow table and joins back to the
// primary table. The query is lower-cased and wrapped in wildcard tokens so
// "chef" matches "Chef Bot". Results are ordered by popularity
// (user_up_votes + users_count) descending.
func (r *BotRepository) Search(ctx context.Context, query string) ([]*models.Bot, error) {
	match := "*" + strings.ToLower(strings.TrimSpace(query)) + "*"

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+botColumns+`
		FROM bots
		WHERE uuid IN (SELECT uuid FROM bots_fts WHERE bots_fts MATCH ?)
		ORDER BY (user_up_votes + users_count) DESC`,
		match,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search bots: %w", err)
	}
	defer rows.Close()

	return scanBots(rows)
}

// List returns a page of bots ordered by creation time descending
func (r *BotRepository) List(ctx context.Context, limit, offset int) ([]*models.Bot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+botColumns+`
		FROM bots
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	defer rows.Close()

	return scanBots(rows)
}

// GetByUUID retrieves a single bot
func (r *BotRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+botColumns+`
		FROM bots
		WHERE uuid = ?`,
		id.String(),
	)

	bot, err := scanBot(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bot not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	return bot, nil
}

// Delete removes a bot from both tables. Deletion is unconditional so no
// cross-check between the tables is needed.
func (r *BotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bots WHERE uuid = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bots_fts WHERE uuid = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete fts shadow row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bot delete: %w", err)
	}
	return nil
}

// DeleteAll clears both tables
func (r *BotRepository) DeleteAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bots`); err != nil {
		return fmt.Errorf("failed to delete bots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bots_fts`); err != nil {
		return fmt.Errorf("failed to delete fts shadow rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bots delete: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (*models.Bot, error) {
	bot := &models.Bot{}
	var botUUID, parentUUID, tagsJSON string

	err := row.Scan(
		&botUUID,
		&parentUUID,
		&bot.Name,
		&bot.Alias,
		&bot.SystemMessage,
		&bot.Description,
		&tagsJSON,
		&bot.UsersCount,
		&bot.UserUpVotes,
		&bot.UserDownVotes,
		&bot.CreatedAt,
		&bot.UpdatedAt,
		&bot.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	if bot.UUID, err = uuid.Parse(botUUID); err != nil {
		return nil, fmt.Errorf("failed to parse bot uuid: %w", err)
	}
	if bot.ParentUUID, err = uuid.Parse(parentUUID); err != nil {
		return nil, fmt.Errorf("failed to parse parent uuid: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &bot.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	bot.CreatedAt = bot.CreatedAt.UTC()
	bot.UpdatedAt = bot.UpdatedAt.UTC()

	return bot, nil
}

func scanBots(rows *sql.Rows) ([]*models.Bot, error) {
	var bots []*models.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bots: %w", err)
	}
	return bots, nil
}
