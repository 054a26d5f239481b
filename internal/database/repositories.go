package database

import (
	"context"
	"time"

	"github.com/botforge/botforge/internal/models"
	"github.com/google/uuid"
)

// BotStore is the bot directory surface consumed by the sync job and the
// share flow. The interface enables fakes in tests.
type BotStore interface {
	AddBot(ctx context.Context, bot *models.Bot) error
	Search(ctx context.Context, query string) ([]*models.Bot, error)
	List(ctx context.Context, limit, offset int) ([]*models.Bot, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*models.Bot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// WatermarkStore is the slice of the preference store the sync job needs
type WatermarkStore interface {
	LastSuccessfulSync(ctx context.Context) (time.Time, error)
	SetLastSuccessfulSync(ctx context.Context, t time.Time) error
}

// ImageStore is the persistence surface for the image generation worker
type ImageStore interface {
	SaveRequest(ctx context.Context, req *models.ImageRequest) error
	GetRequest(ctx context.Context, requestID int64) (*models.ImageRequest, error)
	SaveImage(ctx context.Context, img *models.GeneratedImage) error
}

// Ensure concrete types implement the interfaces
var (
	_ BotStore       = (*BotRepository)(nil)
	_ WatermarkStore = (*PreferenceStore)(nil)
	_ ImageStore     = (*ImageRepository)(nil)
)
