package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpireRepo struct {
	fakeGiftRepo
	calls []time.Time
	count int64
}

func (f *fakeExpireRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	f.calls = append(f.calls, now)
	return f.count, f.err
}

func TestSweeperRunOnce(t *testing.T) {
	repo := &fakeExpireRepo{count: 2}
	s := NewSweeper(repo, time.Minute, testLogger())
	s.now = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }

	s.RunOnce(context.Background())

	require.Len(t, repo.calls, 1)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), repo.calls[0])
}

func TestSweeperRunOnceError(t *testing.T) {
	// A failed sweep is logged and skipped; the next tick retries.
	repo := &fakeExpireRepo{}
	repo.err = errors.New("db down")
	s := NewSweeper(repo, time.Minute, testLogger())

	s.RunOnce(context.Background())
	require.Len(t, repo.calls, 1)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	repo := &fakeExpireRepo{}
	s := NewSweeper(repo, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	assert.NotEmpty(t, repo.calls)
}
