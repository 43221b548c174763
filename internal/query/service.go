// Package query resolves a receiver's active gift queue into display views.
//
// Two equivalent read paths exist: an aggregated server-side view joining
// sender and memory display data in one query, and a fallback that performs
// the same filter and ordering via separate reads plus application-side
// joins. Both normalize into []gifts.View so callers never know which path
// executed.
package query

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/keepsake-app/keepsake/internal/common"
	"github.com/keepsake-app/keepsake/internal/dbx"
	"github.com/keepsake-app/keepsake/internal/gifts"
	"github.com/keepsake-app/keepsake/internal/logging"
	"github.com/keepsake-app/keepsake/internal/store/displaydata"
	storegifts "github.com/keepsake-app/keepsake/internal/store/gifts"
)

// Service reads active gift queues. It is safe for concurrent use.
type Service struct {
	db      dbx.DBTX
	gifts   storegifts.Repository
	display displaydata.Repository
	logger  logging.Logger
	now     func() time.Time

	// Once the aggregated view turns out to be missing on this deployment,
	// stick to the fallback for the rest of the process.
	fallbackOnly atomic.Bool
}

func NewService(db dbx.DBTX, giftRepo storegifts.Repository, displayRepo displaydata.Repository, logger logging.Logger) *Service {
	return &Service{
		db:      db,
		gifts:   giftRepo,
		display: displayRepo,
		logger:  logger.With("module", "query"),
		now:     time.Now,
	}
}

// ActiveGifts returns the receiver's active queue ordered by createdAt
// ascending, joined with sender display data and memory photos. The TTL
// filter is applied at query time on whichever path runs.
func (s *Service) ActiveGifts(ctx context.Context, receiverID string) ([]gifts.View, error) {
	now := s.now()

	if !s.fallbackOnly.Load() {
		views, err := s.aggregated(ctx, receiverID, now)
		if err == nil {
			return views, nil
		}
		if !isCapabilityError(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}
		// Missing view is a deployment gap, not a caller error. Silently
		// switch paths; the result shape stays identical.
		s.fallbackOnly.Store(true)
		s.logger.Debug(ctx, "aggregated gift feed unavailable, using fallback", "receiver", receiverID)
	}

	views, err := s.fallback(ctx, receiverID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return views, nil
}

func (s *Service) aggregated(ctx context.Context, receiverID string, now time.Time) ([]gifts.View, error) {
	query := `SELECT id, sender_id, sender_name, gift_type, photo_url, memory_title,
			message, created_at, expires_at
		FROM active_gift_feed
		WHERE receiver_id = $1
		  AND status IN ('pending', 'delivered')
		  AND expires_at > $2
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, receiverID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]gifts.View, 0)
	for rows.Next() {
		var v gifts.View
		if err := rows.Scan(&v.ID, &v.SenderID, &v.SenderName, &v.GiftType,
			&v.PhotoURL, &v.MemoryTitle, &v.Message, &v.CreatedAt, &v.ExpiresAt); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) fallback(ctx context.Context, receiverID string, now time.Time) ([]gifts.View, error) {
	queue, err := s.gifts.SelectActive(ctx, receiverID, now)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]string, 0, len(queue))
	var memoryIDs []string
	seenSenders := make(map[string]struct{})
	for _, g := range queue {
		if _, ok := seenSenders[g.SenderID]; !ok {
			seenSenders[g.SenderID] = struct{}{}
			senderIDs = append(senderIDs, g.SenderID)
		}
		if g.Type == gifts.TypeMemory && g.MemoryID != "" {
			memoryIDs = append(memoryIDs, g.MemoryID)
		}
	}

	names, err := s.display.SenderNames(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	memories, err := s.display.Memories(ctx, memoryIDs)
	if err != nil {
		return nil, err
	}

	// Queue order comes straight from the store; no client-side reordering.
	result := make([]gifts.View, 0, len(queue))
	for _, g := range queue {
		result = append(result, joinView(g, names, memories))
	}
	return result, nil
}

func joinView(g *gifts.Gift, names map[string]string, memories map[string]displaydata.Memory) gifts.View {
	v := gifts.View{
		ID:         g.ID,
		SenderID:   g.SenderID,
		SenderName: names[g.SenderID],
		GiftType:   g.Type,
		Message:    g.Message,
		CreatedAt:  g.CreatedAt,
		ExpiresAt:  g.ExpiresAt,
	}
	switch g.Type {
	case gifts.TypeMemory:
		m := memories[g.MemoryID]
		v.PhotoURL = m.PhotoURL
		v.MemoryTitle = m.Title
	default:
		v.PhotoURL = g.PhotoURL
	}
	return v
}

// isCapabilityError reports whether err means the aggregated view (or a
// helper function it needs) does not exist: undefined_table / undefined_function.
func isCapabilityError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01" || pgErr.Code == "42883"
	}
	return errors.Is(err, common.ErrCapabilityUnavailable)
}
