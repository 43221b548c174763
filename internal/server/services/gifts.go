// Package services holds the server-side application services: gift
// lifecycle operations, photo storage signing, and the expiration sweeper.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/keepsake-app/keepsake/internal/common"
	"github.com/keepsake-app/keepsake/internal/gifts"
	"github.com/keepsake-app/keepsake/internal/logging"
	storegifts "github.com/keepsake-app/keepsake/internal/store/gifts"
	"github.com/keepsake-app/keepsake/internal/store/relationships"
)

// ActiveQuerier is the read side consumed by GiftService; satisfied by
// query.Service.
type ActiveQuerier interface {
	ActiveGifts(ctx context.Context, receiverID string) ([]gifts.View, error)
}

// DefaultHistoryLimit bounds history reads when the caller does not specify
// a limit.
const DefaultHistoryLimit = 50

// MaxHistoryLimit caps history reads.
const MaxHistoryLimit = 200

// GiftService implements the gift lifecycle operations exposed to
// collaborators: creation from the compose flow, receiver interactions, the
// active queue, and history reads.
type GiftService struct {
	gifts         storegifts.Repository
	relationships relationships.Repository
	queries       ActiveQuerier
	logger        logging.Logger
	now           func() time.Time
}

func NewGiftService(giftRepo storegifts.Repository, relRepo relationships.Repository, queries ActiveQuerier, logger logging.Logger) *GiftService {
	return &GiftService{
		gifts:         giftRepo,
		relationships: relRepo,
		queries:       queries,
		logger:        logger.With("module", "gift_service"),
		now:           time.Now,
	}
}

// Create validates the payload, checks that sender and receiver are the two
// members of the relationship, and inserts a pending gift. CreatedAt and
// ExpiresAt are server-assigned and immutable.
func (s *GiftService) Create(ctx context.Context, p *gifts.CreatePayload) (*gifts.Gift, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	a, b, err := s.relationships.Members(ctx, p.RelationshipID)
	if err != nil {
		// Only a missing relationship is a permission problem; anything
		// else is a store failure the compose flow may retry.
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: relationship %s", common.ErrPermission, p.RelationshipID)
		}
		return nil, fmt.Errorf("%w: checking relationship %s: %v", common.ErrUnavailable, p.RelationshipID, err)
	}
	if !samePair(p.SenderID, p.ReceiverID, a, b) {
		return nil, fmt.Errorf("%w: sender and receiver are not members of relationship %s",
			common.ErrPermission, p.RelationshipID)
	}

	now := s.now().UTC()
	g := &gifts.Gift{
		ID:             uuid.NewString(),
		SenderID:       p.SenderID,
		ReceiverID:     p.ReceiverID,
		RelationshipID: p.RelationshipID,
		Type:           p.GiftType,
		PhotoURL:       p.PhotoURL,
		MemoryID:       p.MemoryID,
		Message:        p.Message,
		Status:         gifts.StatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(gifts.TTL),
	}

	if err := s.gifts.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("saving gift: %w", err)
	}

	s.logger.Info(ctx, "gift created", "gift", g.ID, "type", g.Type, "receiver", g.ReceiverID)
	return g, nil
}

// MarkSeen records that the receiver opened the gift. Idempotent on
// already-terminal gifts.
func (s *GiftService) MarkSeen(ctx context.Context, id string) error {
	if err := s.gifts.MarkSeen(ctx, id, s.now().UTC()); err != nil {
		return fmt.Errorf("marking gift seen: %w", err)
	}
	return nil
}

// Dismiss removes the gift from the receiver's active queue. Idempotent on
// already-terminal gifts.
func (s *GiftService) Dismiss(ctx context.Context, id string) error {
	if err := s.gifts.Dismiss(ctx, id, s.now().UTC()); err != nil {
		return fmt.Errorf("dismissing gift: %w", err)
	}
	return nil
}

// ActiveGifts returns the receiver's ordered active queue.
func (s *GiftService) ActiveGifts(ctx context.Context, userID string) ([]gifts.View, error) {
	return s.queries.ActiveGifts(ctx, userID)
}

// SentHistory returns the user's sent gifts, newest first.
func (s *GiftService) SentHistory(ctx context.Context, userID string, limit int) ([]*gifts.Gift, error) {
	return s.gifts.SelectSent(ctx, userID, clampLimit(limit))
}

// ReceivedHistory returns the user's received gifts, newest first,
// including terminal ones.
func (s *GiftService) ReceivedHistory(ctx context.Context, userID string, limit int) ([]*gifts.Gift, error) {
	return s.gifts.SelectReceived(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func samePair(x, y, a, b string) bool {
	return (x == a && y == b) || (x == b && y == a)
}
