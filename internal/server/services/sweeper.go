package services

import (
	"context"
	"time"

	"github.com/keepsake-app/keepsake/internal/logging"
	storegifts "github.com/keepsake-app/keepsake/internal/store/gifts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "keepsake_sweep_expired_total",
	Help: "Gifts transitioned to expired by the housekeeping sweep.",
})

// Sweeper persists status=expired on stale pending/delivered gifts, purely
// for reporting. The active-queue query never trusts persisted status alone,
// so the sweep is optional housekeeping: it can run on any schedule, on any
// number of instances, and skipping it loses nothing but tidy analytics.
type Sweeper struct {
	gifts    storegifts.Repository
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time
}

func NewSweeper(giftRepo storegifts.Repository, interval time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{
		gifts:    giftRepo,
		interval: interval,
		logger:   logger.With("module", "sweeper"),
		now:      time.Now,
	}
}

// Run executes the sweep loop until the context is cancelled. It blocks, so
// it should be launched in a separate goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "expiration sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "expiration sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. The underlying update only matches
// non-terminal rows, so concurrent executions are harmless.
func (s *Sweeper) RunOnce(ctx context.Context) {
	n, err := s.gifts.ExpireStale(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error(ctx, "sweep failed", "error", err.Error())
		return
	}
	if n > 0 {
		sweepExpiredTotal.Add(float64(n))
		s.logger.Info(ctx, "swept expired gifts", "count", n)
	}
}
