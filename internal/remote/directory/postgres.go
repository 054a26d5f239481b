package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresDirectory is the production directory backend: a shared Postgres
// table keyed by bot uuid with an index on updated_at for watermark queries.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgres connects to the directory database and ensures the schema
func NewPostgres(databaseURL string) (*PostgresDirectory, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory database: %w", err)
	}
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to ping directory database: %w", err)
	}

	d := &PostgresDirectory{db: db}
	if err := d.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to migrate directory schema: %w", err)
	}
	return d, nil
}

func (d *PostgresDirectory) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS bots (
			uuid UUID PRIMARY KEY,
			parent_uuid UUID NOT NULL,
			name TEXT NOT NULL,
			alias TEXT NOT NULL DEFAULT '',
			system_message TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags JSONB NOT NULL DEFAULT '[]',
			users_count INTEGER NOT NULL DEFAULT 0,
			user_up_votes INTEGER NOT NULL DEFAULT 0,
			user_down_votes INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			created_by TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_bots_updated_at ON bots (updated_at);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create directory schema: %w", err)
	}
	return nil
}

// Publish writes a bot record keyed by uuid, stamping updated_at
func (d *PostgresDirectory) Publish(ctx context.Context, bot *models.Bot) error {
	tagsJSON, err := json.Marshal(bot.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	bot.UpdatedAt = time.Now().UTC()
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = bot.UpdatedAt
	}

	query := `
		INSERT INTO bots (uuid, parent_uuid, name, alias, system_message, description, tags,
			users_count, user_up_votes, user_down_votes, created_at, updated_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (uuid) DO UPDATE SET
			name = EXCLUDED.name,
			alias = EXCLUDED.alias,
			system_message = EXCLUDED.system_message,
			description = EXCLUDED.description,
			tags = EXCLUDED.tags,
			users_count = EXCLUDED.users_count,
			user_up_votes = EXCLUDED.user_up_votes,
			user_down_votes = EXCLUDED.user_down_votes,
			updated_at = EXCLUDED.updated_at,
			created_by = EXCLUDED.created_by
	`
	_, err = d.db.ExecContext(ctx, query,
		bot.UUID,
		bot.ParentUUID,
		bot.Name,
		bot.Alias,
		bot.SystemMessage,
		bot.Description,
		tagsJSON,
		bot.UsersCount,
		bot.UserUpVotes,
		bot.UserDownVotes,
		bot.CreatedAt,
		bot.UpdatedAt,
		bot.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to publish bot: %w", err)
	}
	return nil
}

// FetchUpdatedSince returns every bot updated at or after the threshold,
// oldest update first
func (d *PostgresDirectory) FetchUpdatedSince(ctx context.Context, since time.Time) ([]*models.Bot, error) {
	query := `
		SELECT uuid, parent_uuid, name, alias, system_message, description, tags,
			users_count, user_up_votes, user_down_votes, created_at, updated_at, created_by
		FROM bots
		WHERE updated_at >= $1
		ORDER BY updated_at ASC
	`
	rows, err := d.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch updated bots: %w", err)
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		bot := &models.Bot{}
		var botUUID, parentUUID uuid.UUID
		var tagsJSON []byte

		err := rows.Scan(
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
			return nil, fmt.Errorf("failed to scan bot: %w", err)
		}

		bot.UUID = botUUID
		bot.ParentUUID = parentUUID
		if err := json.Unmarshal(tagsJSON, &bot.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bots: %w", err)
	}
	return bots, nil
}

// Close closes the directory connection
func (d *PostgresDirectory) Close() error {
	return d.db.Close()
}

var _ Directory = (*PostgresDirectory)(nil)
