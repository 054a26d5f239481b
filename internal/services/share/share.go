package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/models"
	"github.com/botforge/botforge/internal/remote/directory"
	"go.uber.org/zap"
)

// ErrSharingDisabled is returned when the community content toggle is off
var ErrSharingDisabled = errors.New("community content is disabled in preferences")

// PreferenceReader is the slice of the preference store the share flow needs
type PreferenceReader interface {
	Preferences(ctx context.Context) (models.Preferences, error)
}

// Service publishes personas to the community directory. A shared persona
// becomes a bot record in the remote directory and in the local bot cache.
type Service struct {
	directory directory.Directory
	bots      database.BotStore
	prefs     PreferenceReader
	logger    *zap.Logger
}

// NewService creates a new share service
func NewService(dir directory.Directory, bots database.BotStore, prefs PreferenceReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		directory: dir,
		bots:      bots,
		prefs:     prefs,
		logger:    logger,
	}
}

// Share converts a persona into a bot record and publishes it. The remote
// publish happens first so a network failure never leaves a local record
// with no community counterpart.
func (s *Service) Share(ctx context.Context, persona *models.Persona, createdBy, description string, tags []string) (*models.Bot, error) {
	prefs, err := s.prefs.Preferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if !prefs.EnableUserGeneratedContent {
		return nil, ErrSharingDisabled
	}

	bot := persona.ToBot(createdBy, description, tags)

	if err := s.directory.Publish(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to publish bot: %w", err)
	}
	if err := s.bots.AddBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("failed to cache shared bot: %w", err)
	}

	s.logger.Info("persona_shared",
		zap.String("persona_uuid", persona.UUID.String()),
		zap.String("bot_uuid", bot.UUID.String()),
		zap.String("created_by", createdBy),
	)

	return bot, nil
}

// Import copies a community bot into the local persona list
func (s *Service) Import(ctx context.Context, bot *models.Bot, personas *database.PersonaRepository) (*models.Persona, error) {
	persona := bot.ToPersona()
	if err := personas.Create(ctx, persona); err != nil {
		return nil, fmt.Errorf("failed to import bot as persona: %w", err)
	}

	s.logger.Info("bot_imported",
		zap.String("bot_uuid", bot.UUID.String()),
		zap.String("persona_uuid", persona.UUID.String()),
	)

	return persona, nil
}
