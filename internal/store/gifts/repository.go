package gifts

import (
	"context"
	"time"

	"github.com/keepsake-app/keepsake/internal/gifts"
)

// Repository describes persistence for gift entities. Status transitions are
// conditional updates ("set X only if currently Y"), which keeps them
// idempotent under concurrent sync runs without any distributed locking.
type Repository interface {
	// Create inserts a new pending gift.
	Create(ctx context.Context, g *gifts.Gift) error

	// GetByID returns a gift by id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*gifts.Gift, error)

	// MarkDelivered transitions pending → delivered. A call that finds the
	// gift already past pending affects zero rows and returns nil: the
	// concurrent run that lost the race must treat it as success.
	MarkDelivered(ctx context.Context, id string, at time.Time) error

	// MarkSeen transitions {pending, delivered} → seen. Idempotent no-op on
	// an already-terminal gift.
	MarkSeen(ctx context.Context, id string, at time.Time) error

	// Dismiss transitions {pending, delivered} → dismissed. Idempotent no-op
	// on an already-terminal gift.
	Dismiss(ctx context.Context, id string, at time.Time) error

	// SelectActive returns the receiver's active queue: status in
	// {pending, delivered} and expires_at after now, ordered by created_at
	// ascending. The TTL filter is applied here, at query time, regardless
	// of persisted status.
	SelectActive(ctx context.Context, receiverID string, now time.Time) ([]*gifts.Gift, error)

	// SelectSent and SelectReceived are reverse-chronological history reads.
	SelectSent(ctx context.Context, senderID string, limit int) ([]*gifts.Gift, error)
	SelectReceived(ctx context.Context, receiverID string, limit int) ([]*gifts.Gift, error)

	// ExpireStale persists status=expired on stale pending/delivered rows
	// and returns the affected count. Safe under concurrent execution; never
	// touches terminal rows.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}
