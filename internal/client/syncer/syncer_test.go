package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/keepsake-app/keepsake/internal/client/cache"
	"github.com/keepsake-app/keepsake/internal/gifts"
	"github.com/keepsake-app/keepsake/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeQuerier struct {
	views []gifts.View
	err   error
}

func (f *fakeQuerier) ActiveGifts(ctx context.Context, receiverID string) ([]gifts.View, error) {
	return f.views, f.err
}

type fakeMarker struct {
	mu     sync.Mutex
	marked []string
	err    error
}

func (f *fakeMarker) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return f.err
}

type recordingNotifier struct {
	refreshed chan struct{}
}

func (n *recordingNotifier) Refresh(ctx context.Context) {
	select {
	case n.refreshed <- struct{}{}:
	default:
	}
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestSyncer(t *testing.T, q *fakeQuerier, m *fakeMarker) (*Syncer, *cache.BundleStore, *recordingNotifier) {
	t.Helper()
	db, err := cache.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bundles := cache.NewBundleStore(cache.NewSQLiteRepository(db))
	notifier := &recordingNotifier{refreshed: make(chan struct{}, 1)}

	s := NewSyncer("bob", q, m, bundles, notifier, testLogger())
	s.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }
	return s, bundles, notifier
}

func seedViews() []gifts.View {
	t0 := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	return []gifts.View{
		{ID: "g1", SenderID: "alice", SenderName: "Alice", GiftType: gifts.TypeNote,
			Message: "hi", CreatedAt: t0, ExpiresAt: t0.Add(gifts.TTL)},
		{ID: "g2", SenderID: "alice", SenderName: "Alice", GiftType: gifts.TypePhoto,
			PhotoURL: "https://p/1.jpg", CreatedAt: t0.Add(time.Minute), ExpiresAt: t0.Add(gifts.TTL)},
	}
}

func TestSyncStoresBundleAndMarksHead(t *testing.T) {
	q := &fakeQuerier{views: seedViews()}
	m := &fakeMarker{}
	s, bundles, notifier := newTestSyncer(t, q, m)

	require.NoError(t, s.Sync(context.Background()))

	b, err := bundles.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Len(t, b.Gifts, 2)
	require.NotNil(t, b.ActiveGift)
	assert.Equal(t, "g1", b.ActiveGift.ID)
	assert.Equal(t, []string{"g1"}, m.marked)

	select {
	case <-notifier.refreshed:
	case <-time.After(time.Second):
		t.Fatal("surface was not nudged")
	}
}

func TestSyncEmptyQueue(t *testing.T) {
	q := &fakeQuerier{views: []gifts.View{}}
	m := &fakeMarker{}
	s, bundles, _ := newTestSyncer(t, q, m)

	require.NoError(t, s.Sync(context.Background()))

	b, err := bundles.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Empty(t, b.Gifts)
	assert.Nil(t, b.ActiveGift)
	assert.Empty(t, m.marked)
}

func TestSyncFetchFailureKeepsCache(t *testing.T) {
	q := &fakeQuerier{views: seedViews()}
	m := &fakeMarker{}
	s, bundles, _ := newTestSyncer(t, q, m)

	require.NoError(t, s.Sync(context.Background()))

	q.err = errors.New("store unreachable")
	require.Error(t, s.Sync(context.Background()))

	// Previous snapshot survives a failed run.
	b, err := bundles.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Len(t, b.Gifts, 2)
}

func TestSyncMarkDeliveredFailureDoesNotFailSync(t *testing.T) {
	q := &fakeQuerier{views: seedViews()}
	m := &fakeMarker{err: errors.New("write denied")}
	s, _, _ := newTestSyncer(t, q, m)

	require.NoError(t, s.Sync(context.Background()))
}

func TestConcurrentSyncsConverge(t *testing.T) {
	q := &fakeQuerier{views: seedViews()}
	m := &fakeMarker{}
	s, bundles, _ := newTestSyncer(t, q, m)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Sync(context.Background()))
		}()
	}
	wg.Wait()

	// All runs mark the same head; the store-side conditional update makes
	// the duplicates no-ops, and every run leaves the same bundle behind.
	b, err := bundles.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b.ActiveGift)
	assert.Equal(t, "g1", b.ActiveGift.ID)
	m.mu.Lock()
	for _, id := range m.marked {
		assert.Equal(t, "g1", id)
	}
	m.mu.Unlock()
}

func TestRunPeriodicResync(t *testing.T) {
	q := &fakeQuerier{views: seedViews()}
	m := &fakeMarker{}
	s, _, _ := newTestSyncer(t, q, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	m.mu.Lock()
	n := len(m.marked)
	m.mu.Unlock()
	assert.GreaterOrEqual(t, n, 2)
}
