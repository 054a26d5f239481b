// Package directory talks to the shared community bot directory. The
// directory supports exactly two operations: publishing a bot record keyed
// by uuid, and fetching records updated at or after a threshold, ordered by
// that field.
package directory

import (
	"context"
	"time"

	"github.com/botforge/botforge/internal/models"
)

// Directory is the remote bot directory surface. Implementations must
// return FetchUpdatedSince results ordered by updated_at ascending.
type Directory interface {
	Publish(ctx context.Context, bot *models.Bot) error
	FetchUpdatedSince(ctx context.Context, since time.Time) ([]*models.Bot, error)
}
