// Package ledger keeps the community vote and report bookkeeping in a
// remote document store: three collections (up-votes, down-votes, reports)
// of {bot_id, user_id, timestamp} records queried by equality.
//
// The ledger is advisory. Counts feed denormalized popularity numbers, not
// a source of truth, so existence checks fail open and check-then-act
// sequences are not transactional: concurrent calls for the same (bot,user)
// can race and leave a stray record.
package ledger

import (
	"context"
	"time"

	"github.com/botforge/botforge/internal/models"
	"go.uber.org/zap"
)

// Collection is the minimal document-collection surface the ledger needs.
// Implementations query by (bot_id, user_id) equality; Remove deletes every
// matching record.
type Collection interface {
	Insert(ctx context.Context, rec *models.VoteRecord) error
	Remove(ctx context.Context, botID, userID string) error
	Exists(ctx context.Context, botID, userID string) (bool, error)
	CountByBot(ctx context.Context, botID string) (int64, error)
}

// Ledger coordinates the three collections and enforces "at most one active
// vote per (bot, user)": adding an up-vote deletes any down-vote first, and
// the other way around.
type Ledger struct {
	upVotes   Collection
	downVotes Collection
	reports   Collection
	logger    *zap.Logger
}

// New creates a ledger over the three collections
func New(upVotes, downVotes, reports Collection, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		upVotes:   upVotes,
		downVotes: downVotes,
		reports:   reports,
		logger:    logger,
	}
}

// AddUpVote records an up-vote. An existing up-vote makes this a no-op; an
// existing down-vote is deleted before the insert.
func (l *Ledger) AddUpVote(ctx context.Context, botID, userID string) error {
	return l.addVote(ctx, l.upVotes, l.downVotes, botID, userID)
}

// AddDownVote records a down-vote, the mirror of AddUpVote
func (l *Ledger) AddDownVote(ctx context.Context, botID, userID string) error {
	return l.addVote(ctx, l.downVotes, l.upVotes, botID, userID)
}

func (l *Ledger) addVote(ctx context.Context, target, opposite Collection, botID, userID string) error {
	if l.exists(ctx, target, botID, userID) {
		return nil
	}
	if l.exists(ctx, opposite, botID, userID) {
		if err := opposite.Remove(ctx, botID, userID); err != nil {
			return err
		}
	}
	return target.Insert(ctx, &models.VoteRecord{
		BotID:     botID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	})
}

// AddReport records a report unless one already exists for the pair
func (l *Ledger) AddReport(ctx context.Context, botID, userID string) error {
	if l.exists(ctx, l.reports, botID, userID) {
		return nil
	}
	return l.reports.Insert(ctx, &models.VoteRecord{
		BotID:     botID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	})
}

// HasUpVote reports whether the user up-voted the bot. Query failures are
// treated as "not yet voted".
func (l *Ledger) HasUpVote(ctx context.Context, botID, userID string) bool {
	return l.exists(ctx, l.upVotes, botID, userID)
}

// HasDownVote reports whether the user down-voted the bot
func (l *Ledger) HasDownVote(ctx context.Context, botID, userID string) bool {
	return l.exists(ctx, l.downVotes, botID, userID)
}

// HasReport reports whether the user already reported the bot
func (l *Ledger) HasReport(ctx context.Context, botID, userID string) bool {
	return l.exists(ctx, l.reports, botID, userID)
}

// UpVotes returns the up-vote count for a bot, 0 on failure
func (l *Ledger) UpVotes(ctx context.Context, botID string) int64 {
	return l.count(ctx, l.upVotes, botID)
}

// DownVotes returns the down-vote count for a bot, 0 on failure
func (l *Ledger) DownVotes(ctx context.Context, botID string) int64 {
	return l.count(ctx, l.downVotes, botID)
}

// exists is the fail-open existence predicate: on error it logs and returns
// false, trading a possible duplicate write for availability.
func (l *Ledger) exists(ctx context.Context, c Collection, botID, userID string) bool {
	found, err := c.Exists(ctx, botID, userID)
	if err != nil {
		l.logger.Warn("ledger_existence_check_failed",
			zap.String("bot_id", botID),
			zap.Error(err),
		)
		return false
	}
	return found
}

func (l *Ledger) count(ctx context.Context, c Collection, botID string) int64 {
	n, err := c.CountByBot(ctx, botID)
	if err != nil {
		l.logger.Warn("ledger_count_failed",
			zap.String("bot_id", botID),
			zap.Error(err),
		)
		return 0
	}
	return n
}
