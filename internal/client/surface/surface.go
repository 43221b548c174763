// Package surface nudges the widget renderer after the cache changes. The
// nudge is advisory: the renderer reads the cache on its own schedule, so a
// missed nudge only delays the refresh, never loses data.
package surface

import (
	"context"
	"net/http"
	"time"

	"github.com/keepsake-app/keepsake/internal/logging"
)

// Notifier asks the rendering surface to re-read the cached bundle.
type Notifier interface {
	// Refresh is best-effort and must never fail the caller.
	Refresh(ctx context.Context)
}

// HTTPNotifier pings a local renderer endpoint. Errors are logged at debug
// level and swallowed; an unreachable renderer is normal when the surface
// process is not running.
type HTTPNotifier struct {
	url    string
	client *http.Client
	logger logging.Logger
}

func NewHTTPNotifier(url string, logger logging.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		url:    url,
		client: &http.Client{Timeout: 2 * time.Second},
		logger: logger.With("module", "surface"),
	}
}

func (n *HTTPNotifier) Refresh(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, nil)
	if err != nil {
		n.logger.Debug(ctx, "surface refresh skipped", "error", err.Error())
		return
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Debug(ctx, "surface unreachable", "error", err.Error())
		return
	}
	resp.Body.Close()
}

// Nop is used when no rendering surface is configured.
type Nop struct{}

func (Nop) Refresh(ctx context.Context) {}
