package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

// PersonaRepository handles persona database operations
type PersonaRepository struct {
	db *DB
}

// NewPersonaRepository creates a new persona repository
func NewPersonaRepository(db *DB) *PersonaRepository {
	return &PersonaRepository{db: db}
}

// Create inserts a new persona
func (r *PersonaRepository) Create(ctx context.Context, persona *models.Persona) error {
	now := time.Now().UTC()
	if persona.CreatedAt.IsZero() {
		persona.CreatedAt = now
	}
	if persona.LastUsed.IsZero() {
		persona.LastUsed = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO personas (uuid, name, alias, system_message, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?)`,
		persona.UUID.String(),
		persona.Name,
		persona.Alias,
		persona.SystemMessage,
		persona.CreatedAt,
		persona.LastUsed,
	)
	if err != nil {
		return fmt.Errorf("failed to create persona: %w", err)
	}
	return nil
}

// GetByUUID retrieves a persona by uuid
func (r *PersonaRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*models.Persona, error) {
	persona := &models.Persona{}
	var personaUUID string

	err := r.db.QueryRowContext(ctx, `
		SELECT uuid, name, alias, system_message, created_at, last_used
		FROM personas
		WHERE uuid = ?`,
		id.String(),
	).Scan(
		&personaUUID,
		&persona.Name,
		&persona.Alias,
		&persona.SystemMessage,
		&persona.CreatedAt,
		&persona.LastUsed,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("persona not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}

	if persona.UUID, err = uuid.Parse(personaUUID); err != nil {
		return nil, fmt.Errorf("failed to parse persona uuid: %w", err)
	}
	return persona, nil
}

// List returns all personas, most recently used first
func (r *PersonaRepository) List(ctx context.Context) ([]*models.Persona, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, name, alias, system_message, created_at, last_used
		FROM personas
		ORDER BY last_used DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var personas []*models.Persona
	for rows.Next() {
		persona := &models.Persona{}
		var personaUUID string
		err := rows.Scan(
			&personaUUID,
			&persona.Name,
			&persona.Alias,
			&persona.SystemMessage,
			&persona.CreatedAt,
			&persona.LastUsed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		if persona.UUID, err = uuid.Parse(personaUUID); err != nil {
			return nil, fmt.Errorf("failed to parse persona uuid: %w", err)
		}
		personas = append(personas, persona)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating personas: %w", err)
	}
	return personas, nil
}

// Update rewrites the editable fields of a persona
func (r *PersonaRepository) Update(ctx context.Context, persona *models.Persona) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE personas
		SET name = ?, alias = ?, system_message = ?
		WHERE uuid = ?`,
		persona.Name,
		persona.Alias,
		persona.SystemMessage,
		persona.UUID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update persona: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("persona not found: %w", sql.ErrNoRows)
	}
	return nil
}

// TouchLastUsed records that the persona was selected for a chat
func (r *PersonaRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE personas SET last_used = ? WHERE uuid = ?`,
		time.Now().UTC(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to touch persona: %w", err)
	}
	return nil
}

// Delete removes a persona by uuid
func (r *PersonaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM personas WHERE uuid = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("persona not found: %w", sql.ErrNoRows)
	}
	return nil
}

// DeleteAll removes every persona
func (r *PersonaRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM personas`); err != nil {
		return fmt.Errorf("failed to delete personas: %w", err)
	}
	return nil
}
