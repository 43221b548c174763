// Package realtime subscribes to gift insert notifications so a freshly
// sent gift reaches the receiver's cache without waiting for the periodic
// resync. The subscription is an optimization: every event just triggers a
// full sync run, so missed notifications are healed by the next resync.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/keepsake-app/keepsake/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sethvargo/go-retry"
)

// channel is the pg_notify channel raised by the gift insert trigger.
const channel = "gift_created"

var reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "keepsake_agent_listener_reconnects_total",
	Help: "Re-established realtime subscriptions.",
})

// SyncTrigger starts a cache sync run.
type SyncTrigger interface {
	Sync(ctx context.Context) error
}

// event mirrors the JSON payload built by the insert trigger.
type event struct {
	GiftID     string `json:"gift_id"`
	ReceiverID string `json:"receiver_id"`
}

// Listener holds a LISTEN subscription on a dedicated connection and turns
// matching insert events into sync runs.
type Listener struct {
	dsn        string
	userID     string
	trigger    SyncTrigger
	logger     logging.Logger
	retryDelay time.Duration

	// Seam for tests.
	listen func(ctx context.Context) error
}

func NewListener(dsn, userID string, trigger SyncTrigger, logger logging.Logger) *Listener {
	l := &Listener{
		dsn:        dsn,
		userID:     userID,
		trigger:    trigger,
		logger:     logger.With("module", "realtime"),
		retryDelay: time.Second,
	}
	l.listen = l.listenOnce
	return l
}

// Run maintains the subscription until the context is cancelled,
// reconnecting with capped fibonacci backoff after connection loss. A
// subscription that dies right after a successful dial still pays
// retryDelay before the next attempt, so a persistent LISTEN failure never
// spins.
func (l *Listener) Run(ctx context.Context) {
	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		if !first {
			reconnectsTotal.Inc()
		}
		first = false

		if err := l.listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Warn(ctx, "subscription lost", "error", err.Error())
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}
	l.logger.Info(ctx, "subscribed", "channel", channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(ctx, n.Payload)
	}
}

// connect dials with backoff so a record store restart does not kill the
// agent. Only the dial retries here; a lost established connection goes
// back through Run.
func (l *Listener) connect(ctx context.Context) (*pgx.Conn, error) {
	var conn *pgx.Conn

	b := retry.WithCappedDuration(30*time.Second, retry.NewFibonacci(time.Second))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		conn, err = pgx.Connect(ctx, l.dsn)
		if err != nil {
			l.logger.Debug(ctx, "connect failed, retrying", "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// handle triggers a sync when the event targets this device's owner.
// Payloads for other receivers and malformed payloads are dropped.
func (l *Listener) handle(ctx context.Context, payload string) {
	var ev event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		l.logger.Warn(ctx, "bad notification payload", "error", err.Error())
		return
	}
	if ev.ReceiverID != l.userID {
		return
	}

	l.logger.Debug(ctx, "gift event received", "gift", ev.GiftID)
	if err := l.trigger.Sync(ctx); err != nil {
		l.logger.Error(ctx, "event-triggered sync failed", "error", err.Error())
	}
}
