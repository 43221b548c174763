// Package push wakes the agent when the device receives a gift push. Push
// delivery is best effort end to end: the bridge never creates state of its
// own, it only triggers the same sync run the other paths use and surfaces
// a user-facing alert.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/keepsake-app/keepsake/internal/logging"
)

// MessageTypeGift marks pushes that announce a new gift. Other message
// types pass through the device untouched by this bridge.
const MessageTypeGift = "gift"

// Message is the decoded push payload.
type Message struct {
	Type       string `json:"type"`
	GiftID     string `json:"giftId"`
	SenderName string `json:"senderName"`
	Preview    string `json:"preview"`
}

// SyncTrigger starts a cache sync run.
type SyncTrigger interface {
	Sync(ctx context.Context) error
}

// Alerter raises a user-facing notification on the device.
type Alerter interface {
	Alert(ctx context.Context, title, body string)
}

// LogAlerter writes alerts to the log. Stands in for a platform notifier
// on headless deployments.
type LogAlerter struct {
	logger logging.Logger
}

func NewLogAlerter(logger logging.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With("module", "alerts")}
}

func (a *LogAlerter) Alert(ctx context.Context, title, body string) {
	a.logger.Info(ctx, "alert", "title", title, "body", body)
}

// Bridge glues the push relay to the sync path.
type Bridge struct {
	trigger SyncTrigger
	alerter Alerter
	logger  logging.Logger
}

func NewBridge(trigger SyncTrigger, alerter Alerter, logger logging.Logger) *Bridge {
	return &Bridge{
		trigger: trigger,
		alerter: alerter,
		logger:  logger.With("module", "push"),
	}
}

// Handle processes one push message. Non-gift messages are ignored. A
// failed sync still alerts the user; the push itself already proves a gift
// exists, and the next sync heals the cache.
func (b *Bridge) Handle(ctx context.Context, msg Message) {
	if msg.Type != MessageTypeGift {
		return
	}

	if err := b.trigger.Sync(ctx); err != nil {
		b.logger.Warn(ctx, "push-triggered sync failed", "gift", msg.GiftID, "error", err.Error())
	}

	title := "New gift"
	if msg.SenderName != "" {
		title = "Gift from " + msg.SenderName
	}
	b.alerter.Alert(ctx, title, msg.Preview)
}

// Hook exposes the bridge to the platform push relay over a local HTTP
// endpoint.
type Hook struct {
	bridge *Bridge
	logger logging.Logger
}

func NewHook(bridge *Bridge, logger logging.Logger) *Hook {
	return &Hook{bridge: bridge, logger: logger.With("module", "push_hook")}
}

// Handler returns the hook's http.Handler.
func (h *Hook) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /push", func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		h.bridge.Handle(r.Context(), msg)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Serve runs the hook server until the context is cancelled.
func (h *Hook) Serve(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: h.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info(ctx, "push hook listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Error(ctx, "push hook error", "error", err.Error())
	}
}
