package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/keepsake-app/keepsake/internal/gifts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_NotExists_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_UpsertOverwritesValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestDelete_RemovesKey_AndIsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("v")))
	require.NoError(t, r.Delete(ctx, "k"))
	require.NoError(t, r.Delete(ctx, "k"))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
	require.NoError(t, r.Set(ctx, "b", []byte{0xBB}))
	require.NoError(t, r.Clear(ctx))

	v, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBundleStore_RoundTrip(t *testing.T) {
	store := NewBundleStore(NewSQLiteRepository(setupDB(t)))
	ctx := context.Background()

	t0 := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	queue := []gifts.View{
		{ID: "g1", SenderID: "alice", SenderName: "Alice", GiftType: gifts.TypeNote,
			Message: "hi", CreatedAt: t0, ExpiresAt: t0.Add(gifts.TTL)},
		{ID: "g2", SenderID: "alice", SenderName: "Alice", GiftType: gifts.TypePhoto,
			PhotoURL: "https://p/1.jpg", CreatedAt: t0.Add(time.Minute), ExpiresAt: t0.Add(gifts.TTL)},
	}
	in := &gifts.Bundle{Gifts: queue, ActiveGift: gifts.Head(queue), LastChecked: t0}

	require.NoError(t, store.Store(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Gifts, out.Gifts)
	require.NotNil(t, out.ActiveGift)
	assert.Equal(t, "g1", out.ActiveGift.ID)
	assert.True(t, out.LastChecked.Equal(t0))
}

func TestBundleStore_LoadBeforeFirstSync(t *testing.T) {
	store := NewBundleStore(NewSQLiteRepository(setupDB(t)))

	b, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBundleStore_ReplacesWholeBundle(t *testing.T) {
	store := NewBundleStore(NewSQLiteRepository(setupDB(t)))
	ctx := context.Background()

	t0 := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	queue := []gifts.View{{ID: "g1", CreatedAt: t0, ExpiresAt: t0.Add(gifts.TTL)}}
	require.NoError(t, store.Store(ctx, &gifts.Bundle{Gifts: queue, ActiveGift: gifts.Head(queue), LastChecked: t0}))

	// Empty snapshot replaces the previous one entirely.
	require.NoError(t, store.Store(ctx, &gifts.Bundle{Gifts: []gifts.View{}, LastChecked: t0.Add(time.Hour)}))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Empty(t, out.Gifts)
	assert.Nil(t, out.ActiveGift)
}
