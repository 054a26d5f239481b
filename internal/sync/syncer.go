// Package sync pulls community bots from the remote directory into the
// local store. Delivery is at-least-once: a failed batch never advances the
// watermark, and the local upsert makes redelivery idempotent.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/remote/directory"
	"go.uber.org/zap"
)

// Syncer runs the directory sync job
type Syncer struct {
	directory directory.Directory
	bots      database.BotStore
	watermark database.WatermarkStore
	logger    *zap.Logger
}

// NewSyncer creates a new syncer
func NewSyncer(dir directory.Directory, bots database.BotStore, watermark database.WatermarkStore, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		directory: dir,
		bots:      bots,
		watermark: watermark,
		logger:    logger,
	}
}

// Sync fetches every directory record updated at or after the stored
// watermark and upserts each into the local store. The watermark advances to
// the maximum updated_at observed in the batch, so client/server clock skew
// cannot skip records, and only after at least one record was written. Any
// failure abandons the whole batch with the watermark untouched.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	since, err := s.watermark.LastSuccessfulSync(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read sync watermark: %w", err)
	}

	bots, err := s.directory.FetchUpdatedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch directory updates: %w", err)
	}
	if len(bots) == 0 {
		s.logger.Debug("directory_sync_no_updates", zap.Time("watermark", since))
		return 0, nil
	}

	var newest time.Time
	for _, bot := range bots {
		if err := s.bots.AddBot(ctx, bot); err != nil {
			return 0, fmt.Errorf("failed to store bot %s: %w", bot.UUID, err)
		}
		if bot.UpdatedAt.After(newest) {
			newest = bot.UpdatedAt
		}
	}

	if err := s.watermark.SetLastSuccessfulSync(ctx, newest); err != nil {
		return 0, fmt.Errorf("failed to advance sync watermark: %w", err)
	}

	s.logger.Info("directory_sync_completed",
		zap.Int("bots", len(bots)),
		zap.Time("previous_watermark", since),
		zap.Time("new_watermark", newest),
	)
	return len(bots), nil
}
