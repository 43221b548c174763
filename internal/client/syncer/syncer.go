// Package syncer refreshes the device cache from the record store. A sync
// run is the only writer of the cached bundle; every trigger path (realtime
// event, push wake, periodic resync) funnels into the same Sync method, so
// concurrent triggers simply produce redundant, convergent runs.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/keepsake-app/keepsake/internal/client/cache"
	"github.com/keepsake-app/keepsake/internal/client/surface"
	"github.com/keepsake-app/keepsake/internal/gifts"
	"github.com/keepsake-app/keepsake/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keepsake_agent_syncs_total",
		Help: "Completed sync runs.",
	})
	syncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keepsake_agent_sync_failures_total",
		Help: "Sync runs that failed before updating the cache.",
	})
)

// ActiveQuerier reads the receiver's active queue from the record store.
type ActiveQuerier interface {
	ActiveGifts(ctx context.Context, receiverID string) ([]gifts.View, error)
}

// DeliveryMarker records the pending-to-delivered transition. The update is
// conditional on the stored side, so marking an already-delivered gift is a
// harmless no-op.
type DeliveryMarker interface {
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

// Syncer rebuilds the cached bundle from the record store.
type Syncer struct {
	userID   string
	queries  ActiveQuerier
	delivery DeliveryMarker
	bundles  *cache.BundleStore
	notifier surface.Notifier
	logger   logging.Logger
	now      func() time.Time
}

func NewSyncer(userID string, queries ActiveQuerier, delivery DeliveryMarker, bundles *cache.BundleStore, notifier surface.Notifier, logger logging.Logger) *Syncer {
	return &Syncer{
		userID:   userID,
		queries:  queries,
		delivery: delivery,
		bundles:  bundles,
		notifier: notifier,
		logger:   logger.With("module", "syncer"),
		now:      time.Now,
	}
}

// Sync fetches the active queue, derives and stores the bundle, records
// delivery of the queue head, and nudges the rendering surface. When the
// fetch fails the cache keeps its previous snapshot untouched.
func (s *Syncer) Sync(ctx context.Context) error {
	views, err := s.queries.ActiveGifts(ctx, s.userID)
	if err != nil {
		syncFailuresTotal.Inc()
		return fmt.Errorf("fetching active gifts: %w", err)
	}

	bundle := &gifts.Bundle{
		Gifts:       views,
		ActiveGift:  gifts.Head(views),
		LastChecked: s.now().UTC(),
	}

	if err := s.bundles.Store(ctx, bundle); err != nil {
		syncFailuresTotal.Inc()
		return fmt.Errorf("storing bundle: %w", err)
	}

	// The head is now visible on the device. Recording delivery is best
	// effort: the next sync retries and the conditional update keeps
	// concurrent runs from double-reporting.
	if bundle.ActiveGift != nil {
		if err := s.delivery.MarkDelivered(ctx, bundle.ActiveGift.ID, s.now().UTC()); err != nil {
			s.logger.Warn(ctx, "could not mark gift delivered",
				"gift", bundle.ActiveGift.ID, "error", err.Error())
		}
	}

	syncsTotal.Inc()
	s.logger.Info(ctx, "cache synced", "gifts", len(views))

	// Fire and forget: the renderer rereads the cache on its own schedule,
	// so a missed nudge costs nothing.
	go s.notifier.Refresh(context.WithoutCancel(ctx))

	return nil
}

// Run performs periodic resyncs until the context is cancelled. The first
// sync runs immediately so a fresh start never shows a stale widget.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if err := s.Sync(ctx); err != nil {
		s.logger.Error(ctx, "initial sync failed", "error", err.Error())
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Error(ctx, "periodic sync failed", "error", err.Error())
			}
		}
	}
}
