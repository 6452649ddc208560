package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"listing-radar/internal/storage"
)

func TestLedgerStore_InsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()

	firstSeen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, "exchange_ws:FOOUSDT", firstSeen, firstSeen))

	entry, err := store.Get(ctx, "exchange_ws:FOOUSDT")
	require.NoError(t, err)
	require.Equal(t, "exchange_ws:FOOUSDT", entry.NaturalKey)
	require.False(t, entry.Confirmed)
	require.Nil(t, entry.ConfirmedAt)
	require.True(t, entry.FirstSeenAt.Equal(firstSeen))
}

func TestLedgerStore_DuplicateKeyAcrossStores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	// Two store instances over the same database, as two process
	// replicas would be. The constraint, not the process, dedups.
	storeA := NewLedgerStore(pool)
	storeB := NewLedgerStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, storeA.Insert(ctx, "addr:0xabc", now, now))
	err := storeB.Insert(ctx, "addr:0xabc", now, now)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestLedgerStore_ConcurrentInsertSameKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	var wins atomic.Int64
	numGoroutines := 20

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Insert(ctx, "addr:0xcontended", now, now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), wins.Load(), "exactly one concurrent insert should win")
}

func TestLedgerStore_ConfirmAndReclaim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	ctx := context.Background()
	reservedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(ctx, "addr:0xstale", reservedAt, reservedAt))
	require.NoError(t, store.Insert(ctx, "addr:0xdone", reservedAt, reservedAt))
	require.NoError(t, store.Confirm(ctx, "addr:0xdone", reservedAt.Add(time.Second)))

	cutoff := reservedAt.Add(15 * time.Minute)
	later := reservedAt.Add(20 * time.Minute)

	// Unconfirmed and stale: reclaimable exactly once per cutoff.
	ok, err := store.Reclaim(ctx, "addr:0xstale", cutoff, later)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Reclaim(ctx, "addr:0xstale", cutoff, later)
	require.NoError(t, err)
	require.False(t, ok, "refreshed reservation is no longer stale")

	// Confirmed: never reclaimable.
	ok, err = store.Reclaim(ctx, "addr:0xdone", reservedAt.Add(24*time.Hour), later)
	require.NoError(t, err)
	require.False(t, ok)

	// Unknown key: nothing to reclaim.
	ok, err = store.Reclaim(ctx, "addr:0xmissing", cutoff, later)
	require.NoError(t, err)
	require.False(t, ok)

	entry, err := store.Get(ctx, "addr:0xstale")
	require.NoError(t, err)
	require.True(t, entry.ReservedAt.Equal(later))
}

func TestLedgerStore_ConfirmUnknownKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	err := store.Confirm(context.Background(), "addr:0xmissing", time.Now().UTC())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLedgerStore_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLedgerStore(pool)
	_, err := store.Get(context.Background(), "addr:0xmissing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
